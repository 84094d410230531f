// Package main is the entrypoint for the Stratum server.
//
// @title           Stratum API
// @version         1.0
// @description     Stratum risk assessment and governance platform. Organization-scoped risk scenario, process, and metadata libraries with a staged assessment workflow.
//
// @contact.name   Stratum Support
// @contact.url    https://github.com/stratum-grc/stratum
//
// @host      localhost:8080
// @BasePath  /api/v1
//
// @securityDefinitions.apikey SessionAuth
// @in cookie
// @name stratum_session
// @description Session cookie authentication
//
// @tag.name Auth
// @tag.description OIDC and local authentication endpoints
// @tag.name Organizations
// @tag.description Organization and business unit management
// @tag.name RiskScenarios
// @tag.description Risk scenario library
// @tag.name Processes
// @tag.description Process library
// @tag.name MetaData
// @tag.description Metadata key definitions
// @tag.name Taxonomies
// @tag.description Risk taxonomies and severity bands
// @tag.name Assessments
// @tag.description Assessment workflow
// @tag.name AuditLogs
// @tag.description Audit trail
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	libredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stratum-grc/stratum/internal/api"
	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/config"
	"github.com/stratum-grc/stratum/internal/db"
	"github.com/stratum-grc/stratum/internal/maintenance"
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

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}
	if cfg.Environment != config.EnvProduction {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	logger.Info().
		Str("version", Version).
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Str("environment", string(cfg.Environment)).
		Msg("Starting Stratum server")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	sessionCfg := auth.DefaultSessionConfig([]byte(cfg.SessionSecret), cfg.Environment == config.EnvProduction)
	sessionCfg.MaxAge = cfg.SessionMaxAge
	sessions, err := auth.NewSessionStore(sessionCfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize session store")
		return 1
	}

	var oidc *auth.OIDC
	if cfg.OIDCEnabled() {
		oidcCfg := auth.DefaultOIDCConfig(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		oidc, err = auth.NewOIDC(ctx, oidcCfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize OIDC provider")
			return 1
		}
		logger.Info().Str("issuer", cfg.OIDCIssuer).Msg("OIDC provider initialized")
	} else {
		logger.Info().Msg("OIDC not configured, local login only")
	}

	var redisClient *libredis.Client
	if cfg.RedisURL != "" {
		opts, err := libredis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient = libredis.NewClient(opts)
		defer redisClient.Close()
		logger.Info().Msg("Redis-backed rate limiting enabled")
	}

	routerCfg := api.Config{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitPeriod:   cfg.RateLimitPeriod,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		RedisClient:       redisClient,
		Version:           Version,
		Commit:            Commit,
		BuildDate:         BuildDate,
	}

	router, err := api.NewRouter(routerCfg, database, oidc, sessions, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sweeper := maintenance.NewStaleSweeper(database, time.Duration(cfg.StaleAfterHours)*time.Hour, cfg.SweepSchedule, logger)
	if err := sweeper.Start(); err != nil {
		logger.Error().Err(err).Msg("Failed to start stale assessment sweeper")
	}
	defer sweeper.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info().Str("signal", sig.String()).Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		return 1
	}

	logger.Info().Msg("Server stopped gracefully")
	return 0
}
