package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanjrogers/aws-s3/internal/repository"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache()
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestCacheMiss(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCacheSetNX(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	set, err := c.SetNX(ctx, "k", []byte("first"), 0)
	require.NoError(t, err)
	require.True(t, set)

	set, err = c.SetNX(ctx, "k", []byte("second"), 0)
	require.NoError(t, err)
	require.False(t, set)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("first"), got)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("abc"), 0))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}
