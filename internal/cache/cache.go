package cache

import (
	"context"
	"errors"

	"moa_backend/internal/clients/pss"
)

var ErrCacheMiss = errors.New("cache miss")

// OrderCache - кэш проекций заказов участника из партнёрского сервиса.
// Проекция короткоживущая, партнёр остаётся источником истины.
type OrderCache interface {
	Get(ctx context.Context, profileNumber string) ([]pss.Order, error)
	Set(ctx context.Context, profileNumber string, orders []pss.Order) error
	Delete(ctx context.Context, profileNumber string) error
}
