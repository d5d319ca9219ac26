package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/grocerysplit/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_DSN", "REPO_TIMEOUT", "READ_RETRIES", "ROUNDING_TOLERANCE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "./data/ledger.db", cfg.DBDSN)
	assert.Equal(t, 3*time.Second, cfg.RepoTimeout)
	assert.Equal(t, 3, cfg.ReadRetries)
	assert.Equal(t, models.Amount(1), cfg.RoundingTolerance)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("REPO_TIMEOUT", "750ms")
	t.Setenv("READ_RETRIES", "5")
	t.Setenv("RETRY_BACKOFF", "soon")
	t.Setenv("NOTIFY_QUEUE_SIZE", "-4")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 750*time.Millisecond, cfg.RepoTimeout)
	assert.Equal(t, 5, cfg.ReadRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryBackoff)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
}
