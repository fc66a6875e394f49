package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	Port        string
	DatabaseURL string // MySQL DSN (mysql://...) or SQLite file path
	RedisURL    string // optional; empty disables the rollup event publisher

	// Pipeline tuning
	ConfidenceThreshold float64 // commands scoring below this are rejected as not recognized

	// Help content seeding
	HelpSeedsPath string // YAML file of built-in help entries; empty skips seeding

	// Analytics retention
	LogRetentionDays int // command logs older than this are purged nightly

	// Dispatch rate limiting (commands/second per user, 0 disables)
	HandlerRateLimit float64
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "3001"),
		DatabaseURL: getEnv("DATABASE_URL", "parcelvoice.db"),
		RedisURL:    getEnv("REDIS_URL", ""),

		ConfidenceThreshold: getFloatEnv("CONFIDENCE_THRESHOLD", 0.3),

		HelpSeedsPath: getEnv("HELP_SEEDS_PATH", "helpseeds.yaml"),

		LogRetentionDays: getIntEnv("LOG_RETENTION_DAYS", 90),

		HandlerRateLimit: getFloatEnv("HANDLER_RATE_LIMIT", 0),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
