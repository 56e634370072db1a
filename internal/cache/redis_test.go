package cache

import (
	"context"
	"testing"
	"time"

	"moa_backend/internal/clients/pss"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, ttl), mr
}

func TestRedisCache_SetAndGet(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	orders := []pss.Order{
		{Number: "MOA.1", Status: "paid", Amount: 69700, CreatedAt: "2026-08-01T10:00:00Z"},
		{Number: "MOA.2", Status: "created", Amount: 10000},
	}

	require.NoError(t, cache.Set(ctx, "100200300", orders))

	got, err := cache.Get(ctx, "100200300")
	require.NoError(t, err)
	assert.Equal(t, orders, got)
}

func TestRedisCache_MissOnUnknownProfile(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)

	_, err := cache.Get(context.Background(), "999")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCache_Delete(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "100200300", []pss.Order{{Number: "MOA.1"}}))
	require.NoError(t, cache.Delete(ctx, "100200300"))

	_, err := cache.Get(ctx, "100200300")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Удаление несуществующего ключа не считается ошибкой
	assert.NoError(t, cache.Delete(ctx, "100200300"))
}

func TestRedisCache_EntryExpires(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "100200300", []pss.Order{{Number: "MOA.1"}}))

	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "100200300")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestNoopCache_AlwaysMisses(t *testing.T) {
	cache := NewNoopCache()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "100200300", []pss.Order{{Number: "MOA.1"}}))

	_, err := cache.Get(ctx, "100200300")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, cache.Delete(ctx, "100200300"))
}
