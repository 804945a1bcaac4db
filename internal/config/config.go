package config

import (
	"os"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv          string
	DBPath          string
	DBDriver        string
	RedisAddr       string
	RedisDB         int
	CacheTTL        time.Duration
	CatalogPath     string
	RefreshSchedule string
	MetricsFile     string
}

// LoadFromEnv loads configuration from environment variables. Malformed
// values fall back to their defaults.
func LoadFromEnv() *Config {
	ttl, err := cast.ToDurationE(getEnv("CACHE_TTL", "10m"))
	if err != nil || ttl <= 0 {
		ttl = 10 * time.Minute
	}

	redisDB, err := cast.ToIntE(getEnv("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		redisDB = 0
	}

	return &Config{
		AppEnv:          getEnv("APP_ENV", "development"),
		DBPath:          getEnv("DB_PATH", "./data/survey.db"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite3"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         redisDB,
		CacheTTL:        ttl,
		CatalogPath:     os.Getenv("CATALOG_PATH"),
		RefreshSchedule: getEnv("REFRESH_SCHEDULE", "@every 5m"),
		MetricsFile:     os.Getenv("METRICS_FILE"),
	}
}

// CacheEnabled reports whether a redis address is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
