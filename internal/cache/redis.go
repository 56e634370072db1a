package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moa_backend/internal/clients/pss"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, profileNumber string) ([]pss.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(profileNumber)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var orders []pss.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders failed: %w", err)
	}
	return orders, nil
}

func (r *RedisCache) Set(ctx context.Context, profileNumber string, orders []pss.Order) error {
	payload, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("marshal orders failed: %w", err)
	}

	if err := r.client.Set(ctx, cacheKey(profileNumber), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, profileNumber string) error {
	if err := r.client.Del(ctx, cacheKey(profileNumber)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(profileNumber string) string {
	return fmt.Sprintf("orders:%s", profileNumber)
}
