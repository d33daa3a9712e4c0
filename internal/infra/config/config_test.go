package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/trackmed")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PUBLIC_HOST", "https://trackmed.example.com/")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://trackmed.example.com", cfg.PublicHost, "trailing slash is trimmed")
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 25, cfg.DBMaxOpenConns)
	assert.Equal(t, 25, cfg.DBMaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
	assert.Equal(t, time.UTC, cfg.ReminderTimezone)
	assert.Equal(t, 10*time.Minute, cfg.SnoozeGrace)
	assert.Equal(t, 3, cfg.QueueMaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.QueueRetryDelay)
	assert.Equal(t, 4, cfg.QueueWorkers)
	assert.Equal(t, 15*time.Second, cfg.DeliveryTimeout)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REMINDER_TIMEZONE", "Asia/Tokyo")
	t.Setenv("SNOOZE_GRACE_MINUTES", "15")
	t.Setenv("QUEUE_WORKERS", "8")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", cfg.ReminderTimezone.String())
	assert.Equal(t, 15*time.Minute, cfg.SnoozeGrace)
	assert.Equal(t, 8, cfg.QueueWorkers)
	assert.Equal(t, 50, cfg.DBMaxOpenConns)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timezone", "REMINDER_TIMEZONE", "Mars/Olympus"},
		{"non-numeric grace", "SNOOZE_GRACE_MINUTES", "soon"},
		{"non-numeric redis db", "REDIS_DB", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
