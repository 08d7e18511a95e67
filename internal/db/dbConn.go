package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	_ "github.com/lib/pq"

	"github.com/sirupsen/logrus"
)

// Open connects to the PostgreSQL database backing the document store and
// configures its connection pool. The connection is pinged before returning.
func Open(ctx context.Context, logger *logrus.Logger, cfg *config.Config) (*sql.DB, error) {
	// URL-encode the password to handle special characters
	encodedPassword := url.QueryEscape(cfg.DBPassword)
	dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, encodedPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("cannot open DB: %w", err)
	}

	configureConnectionPool(conn, cfg)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("cannot ping DB: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":               cfg.DBHost,
		"database":           cfg.DBName,
		"max_open_conns":     cfg.DBMaxOpenConns,
		"max_idle_conns":     cfg.DBMaxIdleConns,
		"conn_max_lifetime":  fmt.Sprintf("%dm", cfg.DBConnMaxLifetime),
		"conn_max_idle_time": fmt.Sprintf("%dm", cfg.DBConnMaxIdleTime),
	}).Info("Database connection pool configured")

	return conn, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.Config) {
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	// Recycle connections so the pool never holds ones the server closed
	db.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Minute)
}

// Stats returns current connection pool statistics for the health endpoint.
func Stats(db *sql.DB) map[string]interface{} {
	stats := db.Stats()
	return map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration":        stats.WaitDuration.String(),
	}
}

// Ping checks that the pool can still reach the database.
func Ping(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
