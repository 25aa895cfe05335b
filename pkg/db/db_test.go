package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "nested", "farm.db")}
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(cfg))

	conn, err := Open(cfg)
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"products", "clients", "subscriptions", "subscription_items", "deliveries", "delivery_items"} {
		var name string
		err := conn.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = $1`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql"})
	assert.Error(t, err)
	assert.Error(t, Migrate(Config{Driver: "mysql"}))
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PORT", "")
	t.Setenv("DB_NAME", "orders")
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_SSLMODE"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "orders", cfg.DBName)
	assert.Equal(t, "postgres://postgres:@localhost:5432/orders?sslmode=disable", postgresURL(cfg))

	t.Setenv("DB_PORT", "not-a-port")
	_, err = LoadConfig()
	assert.Error(t, err)
}
