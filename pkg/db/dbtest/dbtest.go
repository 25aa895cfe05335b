// Package dbtest provides migrated throwaway databases for tests.
package dbtest

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/Cheertaboi/farmshop-subscription-service/pkg/db"
)

// Open returns a migrated SQLite database living in t.TempDir.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	cfg := db.Config{Driver: db.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "test.db")}
	if err := db.Migrate(cfg); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	conn, err := db.Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}
