package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/auth/jwt"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/authz"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/calendar"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/cascade"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/config"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/db"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/docstore"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/metrics"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/middleware"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/pending"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/position"
	"github.com/UofT-ClubHub/Campus-Compass-sub000/internal/relationship"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP server for the Campus Compass backend API.
type Server struct {
	cfg     *config.Config
	log     *logrus.Logger
	engine  *gin.Engine
	db      *sql.DB // nil unless the postgres store is in use
	metrics *metrics.Metrics
}

// Handlers bundles the route handlers registered under /api/v1.
type Handlers struct {
	Relationship *relationship.RelationshipHandler
	Position     *position.PositionHandler
	Pending      *pending.PendingHandler
	Calendar     *calendar.CalendarHandler
	Cascade      *cascade.CascadeHandler
}

// SetupRoutes registers all API routes and middleware for the server.
func (s *Server) SetupRoutes(h Handlers,
	jwter *jwt.Manager,
	store docstore.Store,
	authzMiddleware *authz.Middleware) {
	v1 := s.engine.Group("/api/v1")

	jwtMiddleware := middleware.JWTAuthMiddleware(jwter, store, s.log)

	relationship.RegisterRelationshipRoutes(h.Relationship, v1, jwtMiddleware, authzMiddleware)
	position.RegisterPositionRoutes(h.Position, v1, jwtMiddleware, authzMiddleware)
	pending.RegisterPendingRoutes(h.Pending, v1, jwtMiddleware, authzMiddleware)
	calendar.RegisterCalendarRoutes(h.Calendar, v1, jwtMiddleware, authzMiddleware)
	cascade.RegisterCascadeRoutes(h.Cascade, v1, jwtMiddleware, authzMiddleware)
}

// routes registers health check and other non-API routes.
func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Campus Compass backend is healthy",
		})
	})

	// Detailed health check with database connection pool stats
	s.engine.GET("/healthz/detailed", func(c *gin.Context) {
		body := gin.H{
			"status": "ok",
			"store":  s.cfg.StoreDriver,
			"lock":   s.cfg.LockDriver,
			"time":   time.Now().UTC().Format(time.RFC3339),
		}
		if s.db != nil {
			if err := db.Ping(c.Request.Context(), s.db); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "error",
					"message": "Database connection failed",
					"error":   err.Error(),
				})
				return
			}
			body["database"] = gin.H{
				"status": "connected",
				"pool":   db.Stats(s.db),
			}
		}
		c.JSON(http.StatusOK, body)
	})

	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}

// New creates a new Server instance. conn may be nil when the store is not
// backed by postgres.
func New(cfg *config.Config, log *logrus.Logger, conn *sql.DB, m *metrics.Metrics) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log))

	s := &Server{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		db:      conn,
		metrics: m,
	}
	s.routes()
	return s
}

// Handler exposes the configured engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start runs the HTTP server on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.cfg.Port)
	s.log.Infof("starting server on %s", addr)
	return s.engine.Run(addr)
}
