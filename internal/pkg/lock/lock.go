// Package lock provides keyed locking for read-modify-write cycles on the
// persistent store. Keys are store record keys ("gameUsers") or usernames.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// slot is the lock of one key. Holding the lock means owning the single
// token of sem; waiters counts goroutines holding or waiting for it.
type slot struct {
	sem     chan struct{}
	waiters int
}

// KeyLock serialises operations that share a key. Operations on different
// keys never block each other. A key's slot is dropped once nobody holds or
// waits for it.
type KeyLock struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// New creates a new KeyLock instance.
func New() *KeyLock {
	return &KeyLock{slots: make(map[string]*slot)}
}

func (kl *KeyLock) join(key string) *slot {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	s, ok := kl.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		kl.slots[key] = s
	}
	s.waiters++
	return s
}

func (kl *KeyLock) leave(key string, s *slot) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(kl.slots, key)
	}
}

// Lock blocks until key is acquired or ctx is done.
func (kl *KeyLock) Lock(ctx context.Context, key string) error {
	s := kl.join(key)
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		kl.leave(key, s)
		return ctx.Err()
	}
}

// Unlock releases key. Unlocking a key that is not held is a no-op.
func (kl *KeyLock) Unlock(key string) {
	kl.mu.Lock()
	s, ok := kl.slots[key]
	kl.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-s.sem:
		kl.leave(key, s)
	default:
	}
}

// WithLockContext runs fn while holding key. It gives up with ErrLockTimeout
// when key is not acquired within timeout, or with ctx's error when ctx ends
// first. A timeout of zero or less waits for as long as ctx allows.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := kl.Lock(waitCtx, key); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	defer kl.Unlock(key)

	return fn()
}

// size returns the number of live slots.
func (kl *KeyLock) size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.slots)
}
