package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/mediclin/platform/internal/shared/config"
)

// DB wraps the sql.DB handle with helper methods
type DB struct {
	SQL *sql.DB
}

// New opens (and creates on first run) the SQLite database file
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?%s", cfg.Path, dsnParams(cfg))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes through a single connection; more would
	// just contend on the file lock.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{SQL: db}, nil
}

func dsnParams(cfg config.DatabaseConfig) string {
	params := url.Values{}
	params.Set("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeoutMS))
	params.Add("_pragma", "journal_mode(WAL)")
	return params.Encode()
}

// Close closes the database handle
func (db *DB) Close() {
	if db.SQL != nil {
		db.SQL.Close()
	}
}

// Health checks the database connection
func (db *DB) Health(ctx context.Context) error {
	return db.SQL.PingContext(ctx)
}
