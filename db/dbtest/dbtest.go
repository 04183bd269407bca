// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/plantCo2/water-device/db"

	"gorm.io/driver/sqlite"
)

// New returns a migrated store in a fresh file under t.TempDir. It is
// closed when the test ends.
func New(t testing.TB) db.Database {
	t.Helper()

	path := filepath.Join(t.TempDir(), "garden.db")
	database, err := db.Open(sqlite.Open(db.SQLiteDSN(path)), db.PoolConfig{}, slog.LevelWarn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}
