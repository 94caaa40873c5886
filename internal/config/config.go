// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Supported vote store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory vote queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of vote recording workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many vote ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// Store selects the vote store backend: memory, redis or postgres.
	Store       string `koanf:"store"`
	RedisURL    string `koanf:"redis_url"`
	RedisKey    string `koanf:"redis_key"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// CatalogPath is the CSV file listing the competitors.
	CatalogPath string `koanf:"catalog_path"`

	// MaxIterations and Tolerance bound the Bradley–Terry fit.
	MaxIterations int     `koanf:"max_iterations"`
	Tolerance     float64 `koanf:"tolerance"`

	// RankingsCacheTTLMS is how long a fit is reused; 0 refits every request.
	RankingsCacheTTLMS int `koanf:"rankings_cache_ttl_ms"`

	// MaxRankingsLimit caps GET /api/rankings?limit.
	MaxRankingsLimit int `koanf:"max_rankings_limit"`

	// IncludeIdle ranks catalog competitors that have no votes yet.
	IncludeIdle bool `koanf:"include_idle"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         50_000,
		Store:              StoreMemory,
		RedisKey:           "votes",
		CatalogPath:        "data/suburbs.csv",
		MaxIterations:      100,
		Tolerance:          1e-6,
		RankingsCacheTTLMS: 5_000,
		MaxRankingsLimit:   1000,
		ShutdownTimeoutMS:  10_000,
	}
}

// RankingsCacheTTL returns RankingsCacheTTLMS as a duration.
func (c *Config) RankingsCacheTTL() time.Duration {
	return time.Duration(c.RankingsCacheTTLMS) * time.Millisecond
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig)
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.MaxIterations < 1:
		return invalid("max_iterations must be at least 1, got %d", c.MaxIterations)
	case !(c.Tolerance > 0):
		return invalid("tolerance must be positive, got %v", c.Tolerance)
	case c.RankingsCacheTTLMS < 0:
		return invalid("rankings_cache_ttl_ms must not be negative")
	case c.MaxRankingsLimit < 1:
		return invalid("max_rankings_limit must be at least 1")
	case strings.TrimSpace(c.CatalogPath) == "":
		return invalid("catalog_path must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return invalid("unknown log_format %q", c.LogFormat)
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis store: %w", ErrMissingStoreAddress)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for the postgres store: %w", ErrMissingStoreAddress)
		}
	default:
		return fmt.Errorf("%q: %w", c.Store, ErrUnknownStore)
	}
	return nil
}
