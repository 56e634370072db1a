package alfabank

import (
	"context"
	"time"

	"moa_backend/internal/logger"
)

// PollOrderStatus опрашивает статус заказа шлюза до терминального либо
// исчерпания attempts. Терминальность определяет предикат terminal,
// транспортные сбои отдельных попыток не прерывают опрос.
// Возвращает nil, если терминальный статус так и не получен.
func PollOrderStatus(
	ctx context.Context,
	fetch func(ctx context.Context, gatewayOrderID string) (*OrderStatus, error),
	gatewayOrderID string,
	attempts int,
	interval time.Duration,
	terminal func(*OrderStatus) bool,
) *OrderStatus {
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err := fetch(ctx, gatewayOrderID)
		if err != nil {
			logger.CtxWarn(ctx, "gateway status poll failed",
				"gateway_order_id", gatewayOrderID,
				"attempt", attempt,
				"error", err.Error())
		} else if terminal(status) {
			return status
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	return nil
}
