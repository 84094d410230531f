// Package api provides the HTTP API for the Stratum server.
package api

import (
	"github.com/gin-gonic/gin"
	libredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/stratum-grc/stratum/internal/api/handlers"
	"github.com/stratum-grc/stratum/internal/api/middleware"
	"github.com/stratum-grc/stratum/internal/assessment"
	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/config"
	"github.com/stratum-grc/stratum/internal/db"
	"github.com/stratum-grc/stratum/internal/metrics"

	_ "github.com/stratum-grc/stratum/docs/api"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty means all origins allowed in dev mode.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the duration string for rate limiting (e.g. "1m", "1h").
	RateLimitPeriod string
	// MaxBodyBytes caps request body sizes.
	MaxBodyBytes int64
	// RedisClient, when set, backs the rate limiter so limits are shared
	// across instances.
	RedisClient *libredis.Client
	// Version information for the version endpoint.
	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults for development.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 300,
		RateLimitPeriod:   "1m",
		MaxBodyBytes:      1 << 20,
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine   *gin.Engine
	logger   zerolog.Logger
	sessions *auth.SessionStore
	db       *db.DB
}

// NewRouter creates a new Router with the given dependencies. oidc may be nil
// when no provider is configured.
func NewRouter(
	cfg Config,
	database *db.DB,
	oidc *auth.OIDC,
	sessions *auth.SessionStore,
	logger zerolog.Logger,
) (*Router, error) {
	r := &Router{
		Engine:   gin.New(),
		logger:   logger.With().Str("component", "router").Logger(),
		sessions: sessions,
		db:       database,
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(middleware.CORS(cfg.AllowedOrigins, cfg.Environment))
	r.Engine.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))

	rateLimiter, err := newRateLimiter(cfg)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	healthHandler := handlers.NewHealthHandler(database, logger)
	healthHandler.RegisterPublicRoutes(r.Engine)

	r.Engine.GET("/metrics", gin.WrapH(metrics.Handler(database, logger)))

	r.Engine.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/api/docs/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	versionHandler := handlers.NewVersionHandler(cfg.Version, cfg.Commit, cfg.BuildDate)
	versionHandler.RegisterPublicRoutes(r.Engine)

	authHandler := handlers.NewAuthHandler(database, sessions, oidc, logger)
	authHandler.RegisterPublicRoutes(r.Engine)

	// API v1 routes (auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(sessions, logger))
	apiV1.Use(middleware.AuditMiddleware(database, logger))

	workflow := assessment.NewService(database, logger)

	handlers.NewRiskScenariosHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewProcessesHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewMetaDataHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewAssessmentsHandler(workflow, logger).RegisterRoutes(apiV1)
	handlers.NewOrganizationsHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewTaxonomiesHandler(database, logger).RegisterRoutes(apiV1)
	handlers.NewAuditLogsHandler(database, logger).RegisterRoutes(apiV1)

	return r, nil
}

func newRateLimiter(cfg Config) (gin.HandlerFunc, error) {
	if cfg.RedisClient != nil {
		return middleware.NewRedisRateLimiter(cfg.RedisClient, cfg.RateLimitRequests, cfg.RateLimitPeriod)
	}
	return middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
}
