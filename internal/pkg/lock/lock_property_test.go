package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestConcurrentClampedBalanceProperty runs concurrent read-modify-write coin
// updates under one key and checks that no update is lost.
func TestConcurrentClampedBalanceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 1000).Draw(t, "initial")
		deltas := rapid.SliceOfN(rapid.Int64Range(1, 50), 2, 30).Draw(t, "deltas")

		kl := New()
		balance := initial
		var applied, failed atomic.Int32

		var wg sync.WaitGroup
		wg.Add(len(deltas))
		for _, d := range deltas {
			go func(delta int64) {
				defer wg.Done()
				err := kl.WithLockContext(context.Background(), "gameUsers", 0, func() error {
					balance = max(0, balance+delta)
					applied.Add(1)
					return nil
				})
				if err != nil {
					failed.Add(1)
				}
			}(d)
		}
		wg.Wait()

		if failed.Load() != 0 {
			t.Fatalf("%d lock waits failed", failed.Load())
		}

		want := initial
		for _, d := range deltas {
			want += d
		}
		if balance != want {
			t.Fatalf("balance = %d, want %d", balance, want)
		}
		if int(applied.Load()) != len(deltas) {
			t.Fatalf("applied %d of %d updates", applied.Load(), len(deltas))
		}
		if n := kl.size(); n != 0 {
			t.Fatalf("%d slots left after all holders released", n)
		}
	})
}

// TestIndependentKeysProperty holds one key per goroutine and checks that
// distinct keys never wait on each other.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 10).Draw(t, "keys")

		kl := New()
		ctx := context.Background()
		for i := 0; i < n; i++ {
			if err := kl.Lock(ctx, fmt.Sprintf("user-%d", i)); err != nil {
				t.Fatalf("lock user-%d: %v", i, err)
			}
		}
		if kl.size() != n {
			t.Fatalf("size = %d, want %d", kl.size(), n)
		}
		for i := 0; i < n; i++ {
			kl.Unlock(fmt.Sprintf("user-%d", i))
		}
		if kl.size() != 0 {
			t.Fatalf("size = %d after unlock, want 0", kl.size())
		}
	})
}

func TestKeyLock_FnErrorIsReturned(t *testing.T) {
	kl := New()
	boom := errors.New("boom")

	err := kl.WithLockContext(context.Background(), "k", time.Second, func() error { return boom })
	require.ErrorIs(t, err, boom)

	// The key is free again after fn failed.
	require.NoError(t, kl.Lock(context.Background(), "k"))
	kl.Unlock("k")
	assert.Zero(t, kl.size())
}

func TestKeyLock_WithLockContextTimeout(t *testing.T) {
	kl := New()
	require.NoError(t, kl.Lock(context.Background(), "gameUsers"))

	ran := false
	err := kl.WithLockContext(context.Background(), "gameUsers", 20*time.Millisecond, func() error {
		ran = true
		return nil
	})
	require.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran)

	kl.Unlock("gameUsers")
	assert.Zero(t, kl.size())
}

func TestKeyLock_ParentCancelIsNotTimeout(t *testing.T) {
	kl := New()
	require.NoError(t, kl.Lock(context.Background(), "alice"))
	defer kl.Unlock("alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := kl.WithLockContext(ctx, "alice", time.Minute, func() error { return nil })
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
}

func TestKeyLock_WaiterProceedsAfterUnlock(t *testing.T) {
	kl := New()
	ctx := context.Background()
	require.NoError(t, kl.Lock(ctx, "k"))

	acquired := make(chan struct{})
	go func() {
		if err := kl.Lock(ctx, "k"); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock returned while key was held")
	case <-time.After(20 * time.Millisecond):
	}

	kl.Unlock("k")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the key")
	}
	kl.Unlock("k")
	assert.Zero(t, kl.size())
}

func TestKeyLock_UnlockWithoutLock(t *testing.T) {
	kl := New()
	kl.Unlock("nobody")
	assert.Zero(t, kl.size())
}
