// Package database owns the connection handle shared by every repository.
// It hides the two supported dialects (postgres and sqlite) behind a single
// placeholder style and runs each logical operation in its own transaction.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

var ErrUnknownDialect = errors.New("unknown database dialect")

// Querier is satisfied by both DB and Tx, so repositories can be bound to
// either a plain connection or the transaction of the current operation.
// Queries are written with '?' placeholders and passed through Rebind.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

type DB struct {
	*sql.DB
	dialect Dialect
}

type Tx struct {
	*sql.Tx
	dialect Dialect
}

func ParseDialect(name string) (Dialect, error) {
	switch Dialect(strings.ToLower(name)) {
	case Postgres:
		return Postgres, nil
	case SQLite:
		return SQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

// Open connects, pings and brings the schema up to date.
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	conn, err := open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := RunMigrations(dialect, dsn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{DB: conn, dialect: dialect}, nil
}

func open(dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case Postgres:
		conn, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return conn, nil
	case SQLite:
		conn, err := sql.Open("sqlite", sqliteDSN(dsn))
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		// sqlite allows a single writer; one connection keeps transactions
		// from failing with SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		return conn, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (db *DB) Dialect() Dialect {
	return db.dialect
}

func (db *DB) Rebind(query string) string {
	return rebind(db.dialect, query)
}

func (tx *Tx) Rebind(query string) string {
	return rebind(tx.dialect, query)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise; fn's error is returned unchanged.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Tx{Tx: sqlTx, dialect: db.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// WithReadTx runs fn in a read-only transaction so multi-query reads see a
// single snapshot. sqlite transactions are snapshots already and its driver
// rejects explicit isolation levels.
func (db *DB) WithReadTx(ctx context.Context, fn func(tx *Tx) error) error {
	var opts *sql.TxOptions
	if db.dialect == Postgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	sqlTx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("beginning read transaction: %w", err)
	}
	defer sqlTx.Rollback()

	return fn(&Tx{Tx: sqlTx, dialect: db.dialect})
}

// rebind turns '?' placeholders into postgres' positional '$n' form.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
