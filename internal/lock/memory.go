package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker implements Locker with process-local state.
// Suitable for single-node deployments only.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

// NewMemoryLocker creates a new in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]time.Time),
	}
}

// Acquire attempts to take the lock.
func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, held := l.locks[key]; held && time.Now().Before(expiry) {
		return false, nil
	}

	l.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// Release gives the lock up.
func (l *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[key]
	if !held {
		return false, nil
	}

	delete(l.locks, key)
	return time.Now().Before(expiry), nil
}

// IsHeld reports whether the lock is currently held.
func (l *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiry, held := l.locks[key]
	if held && time.Now().After(expiry) {
		delete(l.locks, key)
		return false, nil
	}
	return held, nil
}

// Ensure MemoryLocker implements Locker
var _ Locker = (*MemoryLocker)(nil)
