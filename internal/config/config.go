// Package config reads the service settings from the environment.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Cheertaboi/farmshop-subscription-service/pkg/db"
)

type Config struct {
	Port            string
	DB              db.Config
	Migrations      bool
	Location        *time.Location
	DiscountsFile   string
	SweepInterval   time.Duration
	SweepWorkers    int
	CatalogCacheTTL time.Duration
	LogLevel        slog.Level
	LogFormat       string
}

// Load builds a Config from environment variables. Call godotenv.Load first
// when a .env file should be honoured.
func Load() (Config, error) {
	dbCfg, err := db.LoadConfig()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		DB:            dbCfg,
		DiscountsFile: os.Getenv("DISCOUNTS_FILE"),
		LogFormat:     strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	// SQLite databases are local; migrate them unless told otherwise.
	cfg.Migrations, err = strconv.ParseBool(getEnv("MIGRATIONS", strconv.FormatBool(dbCfg.Driver == db.DriverSQLite)))
	if err != nil {
		return Config{}, fmt.Errorf("invalid MIGRATIONS: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(getEnv("TIMEZONE", "UTC")); err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(getEnv("SWEEP_INTERVAL", "0s")); err != nil {
		return Config{}, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	if cfg.SweepWorkers, err = strconv.Atoi(getEnv("SWEEP_WORKERS", "4")); err != nil || cfg.SweepWorkers < 1 {
		return Config{}, fmt.Errorf("invalid SWEEP_WORKERS %q", os.Getenv("SWEEP_WORKERS"))
	}
	if cfg.CatalogCacheTTL, err = time.ParseDuration(getEnv("CATALOG_CACHE_TTL", "5m")); err != nil {
		return Config{}, fmt.Errorf("invalid CATALOG_CACHE_TTL: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", cfg.LogFormat)
	}
	return cfg, nil
}

// Logger returns the structured logger described by the config.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
