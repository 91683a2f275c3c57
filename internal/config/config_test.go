package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "jwt:\n  secret: 0123456789abcdef\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ScanInterval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.RetryDelay)
	assert.Equal(t, time.Hour, cfg.Scheduler.SentRetention)
	assert.Equal(t, "log", cfg.Notification.Driver)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: sqlite
  path: /tmp/reminders.db
scheduler:
  scan_interval: 1m
  retry_delay: 30s
jwt:
  secret: 0123456789abcdef
`)
	t.Setenv("REMINDERS_SCHEDULER_RETRY_DELAY", "2m")
	t.Setenv("REMINDERS_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.SQLStore().Driver)
	assert.Equal(t, time.Minute, cfg.Scheduler.Worker().ScanInterval)
	assert.Equal(t, 2*time.Minute, cfg.Scheduler.RetryDelay)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing secret", "server:\n  port: 8080\n"},
		{"unknown driver", "database:\n  driver: mongo\njwt:\n  secret: 0123456789abcdef\n"},
		{"postgres without host", "database:\n  driver: postgres\n  name: reminders\njwt:\n  secret: 0123456789abcdef\n"},
		{"redis without url", "notification:\n  driver: redis\njwt:\n  secret: 0123456789abcdef\n"},
		{"scan interval too short", "scheduler:\n  scan_interval: 10ms\njwt:\n  secret: 0123456789abcdef\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
