// Package api provides the HTTP API for the Veridian server.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api/handlers"
	"github.com/veridianhq/veridian/internal/api/middleware"
	"github.com/veridianhq/veridian/internal/bia"
	"github.com/veridianhq/veridian/internal/db"
	"github.com/veridianhq/veridian/internal/evaluation"
	"github.com/veridianhq/veridian/internal/evidence"
	"github.com/veridianhq/veridian/internal/history"
	"github.com/veridianhq/veridian/internal/report"
)

// Config holds configuration for the API router.
type Config struct {
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
	}
}

// Services bundles the core services the router exposes.
type Services struct {
	Evaluations *evaluation.Service
	Evidence    *evidence.Service
	History     *history.Service
	HistoryFeed *history.Feed
	BIA         *bia.Engine
	Reports     *report.Service
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, database *db.DB, svcs Services, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Health check endpoint (no caller identity required)
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	// Prometheus metrics endpoint (no caller identity required)
	r.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Provisioning surface for the trusted fronting layer
	admin := r.Engine.Group("/api/v1")
	orgsHandler := handlers.NewOrganizationsHandler(database, svcs.BIA, logger)
	orgsHandler.RegisterRoutes(admin)

	// Per-organization routes (caller identity required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.ActorMiddleware())

	handlers.NewEvaluationsHandler(svcs.Evaluations, logger).RegisterRoutes(apiV1)
	handlers.NewEvidenceHandler(svcs.Evidence, logger).RegisterRoutes(apiV1)
	handlers.NewHistoryHandler(svcs.History, svcs.HistoryFeed, logger).RegisterRoutes(apiV1)
	handlers.NewBIAHandler(svcs.BIA, logger).RegisterRoutes(apiV1)
	handlers.NewDashboardHandler(svcs.Reports, logger).RegisterRoutes(apiV1)

	return r, nil
}
