package workers

import (
	"context"
	"time"

	"moa_backend/internal/logger"
	"moa_backend/internal/models"
	"moa_backend/internal/repositories"
)

// MileLedger - возврат миль по заморозкам истёкших заказов.
type MileLedger interface {
	Unfreeze(ctx context.Context, transactionUUID string) error
}

// OrderWorker переводит просроченные неоплаченные заказы в expired
// и возвращает замороженные мили.
type OrderWorker struct {
	orders    repositories.OrderRepository
	relations repositories.MileRelationRepository
	ledger    MileLedger
	interval  time.Duration
}

func NewOrderWorker(
	orders repositories.OrderRepository,
	relations repositories.MileRelationRepository,
	ledger MileLedger,
) *OrderWorker {
	return &OrderWorker{
		orders:    orders,
		relations: relations,
		ledger:    ledger,
		interval:  time.Hour,
	}
}

// Start запускает фоновую проверку истечения заказов
func (w *OrderWorker) Start(ctx context.Context) {
	go w.expireOrders(ctx)
}

func (w *OrderWorker) expireOrders(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("order worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *OrderWorker) runOnce(ctx context.Context) {
	expired, err := w.orders.FindExpired(time.Now())
	if err != nil {
		logger.WorkerLog("order", "find expired", err)
		return
	}

	for _, order := range expired {
		relation, err := w.relations.FindByOrder(order.ID)
		if err == nil {
			// Охранный Claim: конкурирующий callback подтверждения
			// не вернёт и не спишет эту заморозку вторым разом.
			if claimErr := w.relations.Claim(relation.TransactionUUID); claimErr == nil {
				if err := w.ledger.Unfreeze(ctx, relation.TransactionUUID); err != nil {
					// Заморозка вернётся на следующем проходе.
					logger.WorkerLog("order", "unfreeze miles", err)
					if reopenErr := w.relations.Reopen(relation.TransactionUUID); reopenErr != nil {
						logger.WorkerLog("order", "reopen relation", reopenErr)
					}
					continue
				}
			}
		}

		if err := w.orders.UpdateStatus(order.ID, models.OrderStatusExpired); err != nil {
			logger.WorkerLog("order", "mark expired", err)
			continue
		}
		logger.WorkerLog("order", "expired "+order.Number, nil)
	}
}
