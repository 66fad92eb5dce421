// Package storagetest opens migrated databases for store tests.
package storagetest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"refdesk/internal/adapters/storage"
)

// Open returns a fully migrated in-memory database closed on test cleanup.
// A single connection keeps every query on the same in-memory database.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("init test db: %v", err)
	}
	return db
}

// OpenFile returns a migrated database file in a temporary directory with a
// normal connection pool, for tests that need concurrent writers.
func OpenFile(t *testing.T) *sql.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "refdesk.db"))
	if err != nil {
		t.Fatalf("open test db file: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Exec runs seed statements, failing the test on the first error.
func Exec(t *testing.T, db *sql.DB, stmts ...string) {
	t.Helper()
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("seed %q: %v", s, err)
		}
	}
}
