// file: internal/cache/cache_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()

	c := NewMemoryCache(&Config{
		Provider:        "memory",
		TTL:             time.Minute,
		MaxKeys:         100,
		CleanupInterval: time.Minute,
	}, zap.NewNop())
	t.Cleanup(func() { c.Close() })

	return c
}

func TestMemoryCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "badge:stats:42", "cached", time.Minute))

	value, found := c.Get(ctx, "badge:stats:42")
	assert.True(t, found)
	assert.Equal(t, "cached", value)

	_, found = c.Get(ctx, "badge:stats:43")
	assert.False(t, found)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "ephemeral", 1, 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get(ctx, "ephemeral")
	assert.False(t, found, "expired key should not be returned")
	assert.False(t, c.Exists(ctx, "ephemeral"))
}

func TestMemoryCacheSetNX(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	created, err := c.SetNX(ctx, "dedupe:7:12", true, time.Minute)
	require.NoError(t, err)
	assert.True(t, created, "first claim should win")

	created, err = c.SetNX(ctx, "dedupe:7:12", true, time.Minute)
	require.NoError(t, err)
	assert.False(t, created, "second claim should lose")
}

func TestMemoryCacheSetNXAfterExpiry(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	created, err := c.SetNX(ctx, "dedupe:7:12", true, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, created)

	time.Sleep(20 * time.Millisecond)

	created, err = c.SetNX(ctx, "dedupe:7:12", true, time.Minute)
	require.NoError(t, err)
	assert.True(t, created, "expired claim should be reclaimable")
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "badge:stats:1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "badge:stats:2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "notif:count:1", 3, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "badge:stats:*"))

	assert.False(t, c.Exists(ctx, "badge:stats:1"))
	assert.False(t, c.Exists(ctx, "badge:stats:2"))
	assert.True(t, c.Exists(ctx, "notif:count:1"))
}

func TestMemoryCacheIncrement(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	n, err := c.Increment(ctx, "counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Increment(ctx, "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	require.NoError(t, c.Set(ctx, "text", "nope", time.Minute))
	_, err = c.Increment(ctx, "text", 1)
	assert.Error(t, err)
}

func TestMemoryCacheHealth(t *testing.T) {
	c := newTestCache(t)
	assert.NoError(t, c.Health(context.Background()))
}
