package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/auth/jwt"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/calendar"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/cascade"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/db"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/guard"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/lock"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/pending"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/position"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/relationship"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/secrets"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/server"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger := utils.New(cfg)
	ctx := context.Background()

	if err := secrets.ResolveConfig(ctx, cfg, secrets.NewResolverFactory(cfg, logger), logger); err != nil {
		logger.Fatal("failed to resolve secrets: ", err)
	}

	store, conn := openStore(ctx, cfg, logger)
	locker := openLocker(ctx, cfg, logger)

	policy := docstore.DefaultRetryPolicy()
	if cfg.OptimisticMaxRetries > 0 {
		policy.MaxRetries = cfg.OptimisticMaxRetries
	}
	m := metrics.New()
	g := guard.New(locker, policy, m, logger)

	enforcer, err := authz.NewEnforcer(logger)
	if err != nil {
		logger.Fatal("failed to build authorization enforcer: ", err)
	}
	authzMiddleware := authz.NewMiddleware(enforcer, logger)

	// JWT manager setup
	jwter := jwt.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTDuration)*time.Minute)

	relationshipService := relationship.NewService(store, g, logger)
	calendarService := calendar.NewService(store, g, logger)
	positionService := position.NewService(store, g, logger)
	pendingService := pending.NewService(store, g, relationshipService, cfg.PendingRequestLimit, logger)
	cascadeService := cascade.NewService(store, g, calendarService, cfg.CascadeQueryConcurrency, logger)

	s := server.New(cfg, logger, conn, m)
	s.SetupRoutes(server.Handlers{
		Relationship: relationship.NewRelationshipHandler(relationshipService, logger),
		Position:     position.NewPositionHandler(positionService, logger),
		Pending:      pending.NewPendingHandler(pendingService, logger),
		Calendar:     calendar.NewCalendarHandler(calendarService, logger),
		Cascade:      cascade.NewCascadeHandler(cascadeService, logger),
	}, jwter, store, authzMiddleware)

	if err := s.Start(); err != nil {
		logger.Fatal("server failed to start", err)
	}
}

// openStore returns the configured document store and, for postgres, the
// connection pool backing it.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (docstore.Store, *sql.DB) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		conn, err := db.Open(ctx, logger, cfg)
		if err != nil {
			logger.Fatal("failed to open database: ", err)
		}
		store := docstore.NewPostgresStore(conn, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal("failed to prepare document schema: ", err)
		}
		return store, conn
	case config.StoreFirestore:
		store, err := docstore.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.GoogleCredentialsFile, logger)
		if err != nil {
			logger.Fatal("failed to open firestore: ", err)
		}
		return store, nil
	case config.StoreMemory:
		logger.Warn("Using in-memory document store; data is lost on restart")
		return docstore.NewMemoryStore(), nil
	default:
		logger.Fatalf("unknown store driver %q", cfg.StoreDriver)
		return nil, nil
	}
}

func openLocker(ctx context.Context, cfg *config.Config, logger *logrus.Logger) lock.Locker {
	switch cfg.LockDriver {
	case config.LockRedis:
		client, err := lock.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("failed to connect to redis: ", err)
		}
		return lock.NewRedis(client, time.Duration(cfg.LockTTLSeconds)*time.Second, logger)
	case config.LockNone:
		return lock.Nop{}
	case config.LockLocal:
		return lock.NewLocal()
	default:
		logger.Fatalf("unknown lock driver %q", cfg.LockDriver)
		return nil
	}
}
