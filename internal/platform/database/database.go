// Package database opens the SQL backends used by the case store and audit
// trail. Postgres goes through lib/pq; sqlite through the pure-Go modernc
// driver so local runs need no CGO.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"kycengine/internal/platform/config"
	txcontext "kycengine/pkg/platform/tx"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DB pairs a connection pool with its driver name so queries written with
// ? placeholders can be rebound for Postgres.
type DB struct {
	*sql.DB
	Driver string
}

// Open connects to the configured driver and applies pool settings.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case DriverPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		db, err = sql.Open("postgres", cfg.URL)
	case DriverSQLite:
		db, err = openSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.Driver == DriverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.Driver, err)
	}
	return &DB{DB: db, Driver: cfg.Driver}, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = "./kyc.db"
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", path)
	return sql.Open("sqlite", dsn)
}

// Rebind converts ? placeholders to $n for Postgres.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate executes each schema statement in order.
func Migrate(ctx context.Context, db *sql.DB, schemas ...string) error {
	for _, schema := range schemas {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// RunInTx runs fn in a transaction on d. Stores and the audit outbox reached
// through fn's context join it.
func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, d.DB, fn)
}

// RunInTx runs fn inside a transaction carried on the context. Nested calls
// join the outer transaction.
func RunInTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
