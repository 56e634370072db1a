package cache

import (
	"context"

	"moa_backend/internal/clients/pss"
)

// NoopCache используется, когда Redis не сконфигурирован:
// каждый запрос уходит к партнёру напрямую.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(ctx context.Context, profileNumber string) ([]pss.Order, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(ctx context.Context, profileNumber string, orders []pss.Order) error {
	return nil
}

func (NoopCache) Delete(ctx context.Context, profileNumber string) error {
	return nil
}
