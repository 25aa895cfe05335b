package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/farmshop-subscription-service/pkg/db"
)

var keys = []string{
	"PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"DB_SSLMODE", "SQLITE_PATH", "MIGRATIONS", "TIMEZONE", "DISCOUNTS_FILE",
	"SWEEP_INTERVAL", "SWEEP_WORKERS", "CATALOG_CACHE_TTL", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.False(t, cfg.Migrations)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Zero(t, cfg.SweepInterval)
	assert.Equal(t, 4, cfg.SweepWorkers)
	assert.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("TIMEZONE", "Africa/Dakar")
	t.Setenv("SWEEP_INTERVAL", "1h")
	t.Setenv("SWEEP_WORKERS", "8")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Migrations, "sqlite migrates by default")
	assert.Equal(t, "Africa/Dakar", cfg.Location.String())
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Equal(t, 8, cfg.SweepWorkers)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)

	t.Setenv("MIGRATIONS", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.Migrations)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"MIGRATIONS":        "sometimes",
		"TIMEZONE":          "Mars/Olympus",
		"SWEEP_INTERVAL":    "hourly",
		"SWEEP_WORKERS":     "0",
		"CATALOG_CACHE_TTL": "soon",
		"LOG_LEVEL":         "loud",
		"LOG_FORMAT":        "xml",
		"DB_PORT":           "five",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	Config{LogLevel: slog.LevelWarn, LogFormat: "json"}.Logger(&buf).Info("hidden")
	assert.Empty(t, buf.String())

	Config{LogLevel: slog.LevelInfo, LogFormat: "json"}.Logger(&buf).Info("shown", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
