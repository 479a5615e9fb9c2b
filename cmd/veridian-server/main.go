// Package main is the entrypoint for the Veridian compliance server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/veridianhq/veridian/internal/api"
	"github.com/veridianhq/veridian/internal/bia"
	"github.com/veridianhq/veridian/internal/blob"
	"github.com/veridianhq/veridian/internal/catalog"
	"github.com/veridianhq/veridian/internal/config"
	"github.com/veridianhq/veridian/internal/db"
	"github.com/veridianhq/veridian/internal/evaluation"
	"github.com/veridianhq/veridian/internal/evidence"
	"github.com/veridianhq/veridian/internal/history"
	"github.com/veridianhq/veridian/internal/report"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Msg("Starting Veridian server")

	// Load configuration
	cfg := config.LoadServerConfig()
	if cfg.DatabaseURL == "" {
		logger.Error().Msg("DATABASE_URL environment variable is required")
		return 1
	}

	// Connect to database
	dbCfg := db.DefaultConfig(cfg.DatabaseURL)
	dbCfg.OpTimeout = cfg.StorageTimeout
	database, err := db.New(ctx, dbCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	// Load the control catalog
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.CatalogPath).Msg("Failed to load control catalog")
		return 1
	}
	logger.Info().Int("controls", cat.Len()).Msg("Control catalog loaded")

	// Load the BIA tier policy
	policy, err := bia.LoadTierPolicy(cfg.TierPolicyPath)
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.TierPolicyPath).Msg("Failed to load tier policy")
		return 1
	}

	// Select the evidence blob backend
	var blobs blob.Store
	switch cfg.EvidenceBackend {
	case "s3":
		blobs, err = blob.NewS3Store(ctx, blob.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		}, logger)
	case "local":
		blobs, err = blob.NewLocalStore(cfg.EvidenceDir, logger)
	default:
		logger.Error().Str("backend", cfg.EvidenceBackend).Msg("Unknown evidence backend")
		return 1
	}
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.EvidenceBackend).Msg("Failed to initialize evidence storage")
		return 1
	}

	// Optional Redis cache for derived compliance levels
	var levelCache *bia.LevelCache
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Msg("Redis ping failed")
			return 1
		}
		defer redisClient.Close()
		levelCache = bia.NewLevelCache(redisClient)
		logger.Info().Msg("Compliance level cache enabled")
	}

	// Start the history live feed
	feed := history.NewFeed(history.DefaultFeedConfig(), logger)
	feed.Start()
	defer feed.Stop()

	// Wire up services
	evalSvc := evaluation.NewService(database, cat, feed, logger)
	biaEngine := bia.NewEngine(database, policy, levelCache, feed, logger)
	svcs := api.Services{
		Evaluations: evalSvc,
		Evidence:    evidence.NewService(database, blobs, cat, feed, cfg.MaxUploadBytes, logger),
		History:     history.NewService(database, logger),
		HistoryFeed: feed,
		BIA:         biaEngine,
		Reports:     report.NewService(evalSvc, biaEngine, logger),
	}

	// Build API router
	apiCfg := api.DefaultConfig()
	apiCfg.RateLimitRequests = cfg.RateLimitRequests
	apiCfg.RateLimitPeriod = cfg.RateLimitPeriod
	router, err := api.NewRouter(apiCfg, database, svcs, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build API router")
		return 1
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		errCh <- server.ListenAndServe()
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			return 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		return 1
	}

	logger.Info().Msg("Server stopped")
	return 0
}
