package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanjrogers/aws-s3/internal/repository"
)

// CacheLocker implements Locker on top of the cache layer. With the Redis
// cache backend this gives a cross-instance lock; with the memory backend it
// degrades to a process-local one.
//
// Each acquisition stores a per-acquire token as the lock value, so an
// instance whose TTL lapsed cannot release a lock another instance has since
// taken over.
type CacheLocker struct {
	cache  repository.Cache
	prefix string

	mu     sync.Mutex
	tokens map[string]string
}

// NewCacheLocker creates a locker backed by the given cache.
func NewCacheLocker(cache repository.Cache) *CacheLocker {
	return &CacheLocker{
		cache:  cache,
		prefix: "lock:",
		tokens: make(map[string]string),
	}
}

// Acquire attempts to take the lock via an atomic set-if-absent.
func (l *CacheLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()

	acquired, err := l.cache.SetNX(ctx, l.prefix+key, []byte(token), ttl)
	if err != nil || !acquired {
		return false, err
	}

	l.mu.Lock()
	l.tokens[key] = token
	l.mu.Unlock()
	return true, nil
}

// Release gives the lock up, but only while this instance still holds it.
// A lock whose TTL lapsed and was re-acquired elsewhere is left untouched.
func (l *CacheLocker) Release(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	token, held := l.tokens[key]
	delete(l.tokens, key)
	l.mu.Unlock()

	if !held {
		return false, nil
	}

	value, err := l.cache.Get(ctx, l.prefix+key)
	if err != nil {
		if errors.Is(err, repository.ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	if string(value) != token {
		return false, nil
	}

	return true, l.cache.Delete(ctx, l.prefix+key)
}

// IsHeld reports whether the lock is currently held by any instance.
func (l *CacheLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	return l.cache.Exists(ctx, l.prefix+key)
}

// Ensure CacheLocker implements Locker
var _ Locker = (*CacheLocker)(nil)
