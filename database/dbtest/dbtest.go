// Package dbtest opens throwaway sqlite databases with the full schema applied.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jubilio/mwanga/database"
	"github.com/google/uuid"
)

// New returns a migrated sqlite database living in the test's temp dir.
func New(t testing.TB) *database.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "mwanga.db")
	db, err := database.Open(context.Background(), database.SQLite, dsn)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateHousehold inserts a bare household row and returns its id.
func CreateHousehold(t testing.TB, db *database.DB, name string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	query := db.Rebind(`INSERT INTO households (id, name, created_at) VALUES (?, ?, ?)`)
	if _, err := db.ExecContext(context.Background(), query, id, name, time.Now().UTC()); err != nil {
		t.Fatalf("inserting household: %v", err)
	}
	return id
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t testing.TB, db *database.DB, table, where string, args ...any) int {
	t.Helper()

	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	if err := db.QueryRowContext(context.Background(), db.Rebind(query), args...).Scan(&n); err != nil {
		t.Fatalf("counting %s: %v", table, err)
	}
	return n
}
