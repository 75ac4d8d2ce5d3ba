// Package repository provides the typed tables the services persist through.
//
// Every table is a single JSON document under one store key. Writers hold the
// table's key lock for the whole read-modify-write cycle so concurrent updates
// inside the process never lose each other's changes.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Jay160412/jay-website/internal/pkg/kv"
	"github.com/Jay160412/jay-website/internal/pkg/lock"
)

// Store keys of the persisted tables.
const (
	UsersKey      = "gameUsers"
	HighscoresKey = "gameHighscores"
	skinKeyPrefix = "user_"
)

// lockTimeout bounds how long a writer waits for a table's key lock.
const lockTimeout = 5 * time.Second

// Common errors for repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrCorruptRecord = errors.New("stored record is not valid JSON")
)

// SkinDataKey returns the store key of a user's extended game data.
func SkinDataKey(username string) string {
	return skinKeyPrefix + username
}

// document reads and writes one JSON value under a store key.
type document[T any] struct {
	store kv.Store
	locks *lock.KeyLock
	key   string
}

// load decodes the document. A key that was never written yields the zero value.
func (d *document[T]) load(ctx context.Context) (T, error) {
	var v T
	raw, err := d.store.Get(ctx, d.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return v, nil
		}
		return v, fmt.Errorf("failed to read %s: %w", d.key, err)
	}
	if raw == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, d.key, err)
	}
	return v, nil
}

// save encodes and writes the document.
func (d *document[T]) save(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.key, err)
	}
	if err := d.store.Set(ctx, d.key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.key, err)
	}
	return nil
}

// update runs fn on the current document under the key lock and writes the
// result back when fn reports a change.
func (d *document[T]) update(ctx context.Context, fn func(v *T) (bool, error)) error {
	return d.locks.WithLockContext(ctx, d.key, lockTimeout, func() error {
		v, err := d.load(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(&v)
		if err != nil || !changed {
			return err
		}
		return d.save(ctx, v)
	})
}
