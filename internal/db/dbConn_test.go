package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("SELECT 1").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, Ping(context.Background(), conn))

	mock.ExpectExec("SELECT 1").WillReturnError(assert.AnError)
	err = Ping(context.Background(), conn)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "database unreachable")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigureConnectionPool(t *testing.T) {
	conn, _, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	configureConnectionPool(conn, &config.Config{
		DBMaxOpenConns:    7,
		DBMaxIdleConns:    2,
		DBConnMaxLifetime: 30,
		DBConnMaxIdleTime: 5,
	})

	stats := Stats(conn)
	assert.Equal(t, 7, stats["max_open_connections"])
	assert.Equal(t, time.Duration(0).String(), stats["wait_duration"])
}
