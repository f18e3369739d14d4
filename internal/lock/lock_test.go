package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanjrogers/aws-s3/internal/cache/memory"
)

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// Second acquire fails while held.
	acquired, err = locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	held, err := locker.IsHeld(ctx, "job")
	require.NoError(t, err)
	require.True(t, held)

	released, err := locker.Release(ctx, "job")
	require.NoError(t, err)
	require.True(t, released)

	acquired, err = locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLockerExpiry(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, "job", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	// An expired lock can be taken over.
	acquired, err = locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestCacheLocker(t *testing.T) {
	cache := memory.NewCache()
	t.Cleanup(func() { _ = cache.Close() })

	locker := NewCacheLocker(cache)
	ctx := context.Background()

	acquired, err := locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	released, err := locker.Release(ctx, "job")
	require.NoError(t, err)
	require.True(t, released)

	released, err = locker.Release(ctx, "job")
	require.NoError(t, err)
	require.False(t, released)
}

func TestCacheLockerReleaseRequiresOwnership(t *testing.T) {
	cache := memory.NewCache()
	t.Cleanup(func() { _ = cache.Close() })

	first := NewCacheLocker(cache)
	second := NewCacheLocker(cache)
	ctx := context.Background()

	acquired, err := first.Acquire(ctx, "job", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	// The TTL lapsed and another instance took the lock over.
	acquired, err = second.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// The lapsed holder cannot release the new holder's lock.
	released, err := first.Release(ctx, "job")
	require.NoError(t, err)
	require.False(t, released)

	held, err := second.IsHeld(ctx, "job")
	require.NoError(t, err)
	require.True(t, held)

	released, err = second.Release(ctx, "job")
	require.NoError(t, err)
	require.True(t, released)
}

func TestWithLock(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	ran := false
	acquired, err := WithLock(ctx, locker, "job", time.Minute, func(ctx context.Context) error {
		ran = true

		// The lock is held while fn runs.
		held, err := locker.IsHeld(ctx, "job")
		require.NoError(t, err)
		require.True(t, held)
		return nil
	})
	require.NoError(t, err)
	require.True(t, acquired)
	require.True(t, ran)

	// Released afterwards.
	held, err := locker.IsHeld(ctx, "job")
	require.NoError(t, err)
	require.False(t, held)
}

func TestWithLockContested(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "job", time.Minute)
	require.NoError(t, err)

	acquired, err := WithLock(ctx, locker, "job", time.Minute, func(ctx context.Context) error {
		return errors.New("must not run")
	})
	require.NoError(t, err)
	require.False(t, acquired)
}
