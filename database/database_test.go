package database_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Jubilio/mwanga/database"
	"github.com/Jubilio/mwanga/database/dbtest"
	"github.com/google/uuid"
)

func TestParseDialect(t *testing.T) {
	for _, name := range []string{"postgres", "POSTGRES", "sqlite"} {
		if _, err := database.ParseDialect(name); err != nil {
			t.Errorf("ParseDialect(%q): %v", name, err)
		}
	}
	if _, err := database.ParseDialect("mysql"); !errors.Is(err, database.ErrUnknownDialect) {
		t.Errorf("ParseDialect(mysql) = %v, want ErrUnknownDialect", err)
	}
}

func TestWithTxCommits(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	if db.Dialect() != database.SQLite {
		t.Fatalf("dialect = %q, want sqlite", db.Dialect())
	}

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO households (id, name) VALUES (?, ?)`), uuid.New(), "Casa")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if n := dbtest.Count(t, db, "households", ""); n != 1 {
		t.Fatalf("households = %d, want 1", n)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO households (id, name) VALUES (?, ?)`), uuid.New(), "Casa"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	if n := dbtest.Count(t, db, "households", ""); n != 0 {
		t.Fatalf("households = %d after rollback, want 0", n)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	query := db.Rebind(`INSERT INTO users (id, household_id, email, password_hash) VALUES (?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, query, uuid.New(), uuid.New(), "a@b.c", "x"); err == nil {
		t.Fatal("expected foreign key violation for unknown household")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "again.db")
	for i := 0; i < 2; i++ {
		if err := database.RunMigrations(database.SQLite, dsn); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	household := dbtest.CreateHousehold(t, db, "Casa")

	insert := db.Rebind(`INSERT INTO users (id, household_id, email, password_hash) VALUES (?, ?, ?, ?)`)
	if _, err := db.ExecContext(ctx, insert, uuid.New(), household, "ana@example.com", "x"); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	_, err := db.ExecContext(ctx, insert, uuid.New(), household, "ana@example.com", "x")
	if !database.IsUniqueViolation(fmt.Errorf("inserting user: %w", err)) {
		t.Fatalf("duplicate email error %v not recognised", err)
	}

	_, err = db.ExecContext(ctx, insert, uuid.New(), uuid.New(), "rui@example.com", "x")
	if err == nil || database.IsUniqueViolation(err) {
		t.Fatalf("foreign key error %v reported as unique violation", err)
	}
	if database.IsUniqueViolation(errors.New("boom")) || database.IsUniqueViolation(nil) {
		t.Fatal("plain errors reported as unique violation")
	}
}
