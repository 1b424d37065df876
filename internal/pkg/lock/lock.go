// Package lock provides keyed in-process locks that serialize ledger
// mutations for one member or one submission at a time.
package lock

import (
	"context"
	"errors"
	"sync"
)

// entry is a one-slot semaphore shared by everyone holding or waiting on a key.
type entry struct {
	slot chan struct{}
	refs int
}

// Keyed provides per-key mutual exclusion. Keys with no holder and no
// waiter are dropped, so memory stays proportional to contention.
type Keyed[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

// New creates an empty keyed lock.
func New[K comparable]() *Keyed[K] {
	return &Keyed[K]{entries: make(map[K]*entry)}
}

// acquire returns the entry for key with its reference count raised.
// Callers must hold k.mu.
func (k *Keyed[K]) acquire(key K) *entry {
	e, ok := k.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

// release drops one reference and forgets the key when unused.
func (k *Keyed[K]) release(key K, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()
}

// Lock blocks until the key is held or ctx is done.
func (k *Keyed[K]) Lock(ctx context.Context, key K) error {
	k.mu.Lock()
	e := k.acquire(key)
	k.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.release(key, e)
		return ctx.Err()
	}
}

// TryLock acquires the key without blocking.
func (k *Keyed[K]) TryLock(key K) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := k.acquire(key)
	select {
	case e.slot <- struct{}{}:
		return true
	default:
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		return false
	}
}

// Unlock releases a key held by Lock or TryLock.
// Unlocking a key that is not held is a no-op.
func (k *Keyed[K]) Unlock(key K) {
	k.mu.Lock()
	e, ok := k.entries[key]
	k.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-e.slot:
		k.release(key, e)
	default:
	}
}

// WithLock runs fn while holding key. A ctx deadline hit while waiting
// is reported as ErrLockTimeout.
func (k *Keyed[K]) WithLock(ctx context.Context, key K, fn func() error) error {
	if err := k.Lock(ctx, key); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	defer k.Unlock(key)

	return fn()
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check and may change immediately after.
func (k *Keyed[K]) IsLocked(key K) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.entries[key]
	return ok && len(e.slot) == 1
}

// Len returns the number of keys currently held or waited on.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
