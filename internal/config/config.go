// Package config loads server settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/mmynk/grocerysplit/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port     string
	DBDriver string
	DBDSN    string

	JWTSecret     string
	TokenDuration time.Duration

	RepoTimeout  time.Duration
	ReadRetries  int
	RetryBackoff time.Duration

	NotifyQueueSize   int
	RoundingTolerance models.Amount
}

// Load reads configuration from environment variables. Malformed numbers
// and durations fall back to their defaults with a warning.
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		DBDriver:          getEnv("DB_DRIVER", "sqlite"),
		DBDSN:             getEnv("DB_DSN", "./data/ledger.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		TokenDuration:     getDuration("TOKEN_DURATION", 24*time.Hour),
		RepoTimeout:       getDuration("REPO_TIMEOUT", 3*time.Second),
		ReadRetries:       getInt("READ_RETRIES", 3),
		RetryBackoff:      getDuration("RETRY_BACKOFF", 50*time.Millisecond),
		NotifyQueueSize:   getInt("NOTIFY_QUEUE_SIZE", 256),
		RoundingTolerance: models.Amount(getInt("ROUNDING_TOLERANCE", 1)),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		slog.Warn("Invalid integer, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return n
}
