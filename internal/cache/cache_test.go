package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedSource struct {
	ID         int64
	Identifier string
}

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, 0), server
}

func TestSetAndGet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	err := c.Set(ctx, "source:banking:daily", cachedSource{ID: 7, Identifier: "daily"}, time.Minute)
	require.NoError(t, err)

	var got cachedSource
	found, err := c.Get(ctx, "source:banking:daily", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedSource{ID: 7, Identifier: "daily"}, got)
}

func TestGetMiss(t *testing.T) {
	c, _ := newTestCache(t)

	var got cachedSource
	found, err := c.Get(context.Background(), "missing", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestExpiry(t *testing.T) {
	c, server := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedSource{ID: 1}, time.Minute))
	server.FastForward(2 * time.Minute)

	var got cachedSource
	found, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedSource{ID: 1}, time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	var got cachedSource
	found, err := c.Get(ctx, "k", &got)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, c.Delete(ctx, "never-set"))
}
