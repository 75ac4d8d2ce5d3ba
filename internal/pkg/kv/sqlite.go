package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQL is a Store backed by a database/sql handle holding a kv_store table.
type SQL struct {
	db *sql.DB
}

// NewSQL wraps an open database handle. The kv_store table must exist.
func NewSQL(db *sql.DB) *SQL {
	return &SQL{db: db}
}

// OpenSQLite opens (creating if needed) the sqlite file at path and ensures
// the kv_store table exists.
func OpenSQLite(ctx context.Context, path string) (*SQL, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping sqlite store: %w", err)
	}

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened sqlite store")
	return NewSQL(conn), nil
}

// Get returns the value stored under key.
func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM kv_store WHERE key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", storageError("get", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *SQL) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return storageError("set", key, err)
	}
	return nil
}

// Close closes the database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
