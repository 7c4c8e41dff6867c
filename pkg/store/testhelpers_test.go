package store

import (
	"context"
	"database/sql"
	"testing"
)

// newTestStore opens an in-memory SQLite database with migrations applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := New(db, DialectSQLite)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return s
}
