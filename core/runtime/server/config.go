package server

import (
	"os"
	"time"
)

// Config holds the runtime configuration. Values come from GRAPHQUILL_*
// environment variables, with flags layered on top by the CLI.
type Config struct {
	// Port is the HTTP listen port.
	Port string
	// Backend selects which seed backend executes templates. Empty picks the
	// first backend in the seed file (sorted by name).
	Backend string
	// StoreDriver selects the definition store: memory, postgres or mysql.
	StoreDriver string
	// StoreDSN is the definition store connection string for SQL drivers.
	StoreDSN string
	// RedisURL enables the Redis definition cache when set.
	RedisURL string
	// CacheTTL bounds the life of cached definitions. Zero disables expiry.
	CacheTTL time.Duration
	// OTelEnabled turns on OTLP trace and metric export.
	OTelEnabled bool
}

// ConfigFromEnv builds a Config from environment variables
func ConfigFromEnv() Config {
	cfg := Config{
		Port:        envOr("GRAPHQUILL_PORT", envOr("PORT", "8080")),
		Backend:     os.Getenv("GRAPHQUILL_BACKEND"),
		StoreDriver: envOr("GRAPHQUILL_STORE_DRIVER", "memory"),
		StoreDSN:    os.Getenv("GRAPHQUILL_STORE_DSN"),
		RedisURL:    os.Getenv("GRAPHQUILL_REDIS_URL"),
		OTelEnabled: os.Getenv("GRAPHQUILL_OTEL") == "true",
	}

	if ttl := os.Getenv("GRAPHQUILL_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.CacheTTL = d
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
