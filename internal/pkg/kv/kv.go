// Package kv provides the persistent key-value store the account, economy
// and highscore layers keep their JSON records in.
//
// The contract is deliberately small: string keys map to string values,
// there are no transactions and no multi-key atomicity. Callers that need
// read-modify-write consistency serialise on the key with internal/pkg/lock.
package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jay160412/jay-website/internal/config"
)

// Store errors.
var (
	// ErrNotFound is returned by Get when the key has never been written.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable is returned when there is no persistent backing at all.
	ErrUnavailable = errors.New("kv: store unavailable")
	// ErrStorage wraps failures reported by the backend.
	ErrStorage = errors.New("kv: storage failure")
)

// Store is a string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// storageError wraps a backend failure so that errors.Is matches ErrStorage
// while the original cause stays reachable.
func storageError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %q: %w", ErrStorage, op, key, err)
}

// New opens the backend selected by cfg.Backend.
// The postgres backend takes the connection settings from db.
func New(ctx context.Context, cfg config.StoreConfig, db config.DatabaseConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemory(), nil
	case config.BackendNone:
		return Unavailable{}, nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, cfg.SQLite.Path)
	case config.BackendPostgres:
		return OpenPostgres(ctx, &db)
	case config.BackendRedis:
		return OpenRedis(ctx, cfg.Redis)
	case config.BackendMongo:
		return OpenMongo(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
