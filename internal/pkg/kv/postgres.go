package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jay160412/jay-website/internal/config"
	"github.com/Jay160412/jay-website/internal/pkg/db"
)

// Postgres is a Store backed by the kv_store table of a PostgreSQL database.
type Postgres struct {
	pool  *pgxpool.Pool
	owned *db.Pool
}

// NewPostgres wraps an existing pool. The kv_store table must exist.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects with cfg and applies the schema migrations.
// The returned store owns the pool and closes it on Close.
func OpenPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*Postgres, error) {
	p, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: p.Pool, owned: p}, nil
}

// Get returns the value stored under key.
func (s *Postgres) Get(ctx context.Context, key string) (string, error) {
	const query = `SELECT value FROM kv_store WHERE key = $1`

	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", storageError("get", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value.
func (s *Postgres) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, value); err != nil {
		return storageError("set", key, err)
	}
	return nil
}

// Close releases the pool if the store opened it.
func (s *Postgres) Close() error {
	if s.owned != nil {
		s.owned.Close()
	}
	return nil
}
