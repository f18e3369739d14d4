// Package lock provides advisory locking for gateway maintenance jobs.
// Single-node deployments use in-memory locks; multi-node deployments lock
// through the shared cache so only one instance runs a given job at a time.
package lock

import (
	"context"
	"time"
)

// Locker defines the advisory lock operations.
// A lock expires automatically after its TTL, so a crashed holder never
// blocks other instances forever.
type Locker interface {
	// Acquire attempts to take the lock. Returns true if acquired, false if
	// another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives the lock up. Returns true if it was held.
	Release(ctx context.Context, key string) (bool, error)

	// IsHeld reports whether the lock is currently held by anyone.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// WithLock runs fn while holding the lock, releasing it afterwards.
// Returns false without running fn when the lock is already held elsewhere.
func WithLock(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	acquired, err := locker.Acquire(ctx, key, ttl)
	if err != nil || !acquired {
		return false, err
	}

	defer func() {
		_, _ = locker.Release(ctx, key)
	}()

	return true, fn(ctx)
}
