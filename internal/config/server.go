// Package config provides configuration management for Stratum.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// ServerConfig holds server-level configuration. Values come from environment
// variables, optionally overlaid by a YAML file named in CONFIG_FILE.
type ServerConfig struct {
	Environment   Environment `yaml:"environment"`
	ListenAddr    string      `yaml:"listen_addr"`
	DatabaseURL   string      `yaml:"database_url"`
	SessionSecret string      `yaml:"session_secret"`
	SessionMaxAge int         `yaml:"session_max_age"` // seconds
	CORSOrigins   []string    `yaml:"cors_origins"`

	RateLimitRequests int64  `yaml:"rate_limit_requests"`
	RateLimitPeriod   string `yaml:"rate_limit_period"`
	MaxBodyBytes      int64  `yaml:"max_body_bytes"`
	RedisURL          string `yaml:"redis_url"` // optional, shares rate limits across instances

	OIDCIssuer       string `yaml:"oidc_issuer"`
	OIDCClientID     string `yaml:"oidc_client_id"`
	OIDCClientSecret string `yaml:"oidc_client_secret"`
	OIDCRedirectURL  string `yaml:"oidc_redirect_url"`

	// StaleAfterHours is the idle threshold for the assessment sweeper.
	StaleAfterHours int    `yaml:"stale_after_hours"`
	SweepSchedule   string `yaml:"sweep_schedule"` // cron expression

	LogLevel string `yaml:"log_level"`
}

// LoadServerConfig reads configuration from the environment, then overlays
// the YAML file from CONFIG_FILE when set.
func LoadServerConfig() (ServerConfig, error) {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	cfg := ServerConfig{
		Environment:       env,
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
		SessionMaxAge:     getEnvInt("SESSION_MAX_AGE", 86400),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitRequests: int64(getEnvInt("RATE_LIMIT_REQUESTS", 300)),
		RateLimitPeriod:   getEnv("RATE_LIMIT_PERIOD", "1m"),
		MaxBodyBytes:      int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		RedisURL:          os.Getenv("REDIS_URL"),
		OIDCIssuer:        os.Getenv("OIDC_ISSUER"),
		OIDCClientID:      os.Getenv("OIDC_CLIENT_ID"),
		OIDCClientSecret:  os.Getenv("OIDC_CLIENT_SECRET"),
		OIDCRedirectURL:   os.Getenv("OIDC_REDIRECT_URL"),
		StaleAfterHours:   getEnvInt("STALE_AFTER_HOURS", 72),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "0 * * * *"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if cfg.SessionMaxAge < 0 {
		cfg.SessionMaxAge = 86400
	}
	return cfg, nil
}

// Validate checks that required settings are present.
func (c ServerConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}
	return nil
}

// OIDCEnabled reports whether an OIDC provider is configured.
func (c ServerConfig) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
