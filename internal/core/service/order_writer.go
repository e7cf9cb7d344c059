package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// orderWriter owns the save-then-publish discipline shared by every order mutation.
type orderWriter struct {
	orders    port.OrderRepository
	publisher port.EventPublisher
	locker    port.Locker
	logger    *zap.Logger
}

// apply runs fn on the order under its lock and persists the result when fn
// recorded new events. found is false when no order has the id.
func (w *orderWriter) apply(ctx context.Context, id domain.OrderID, fn func(*domain.Order) error) (order *domain.Order, found bool, err error) {
	unlock, err := w.locker.Lock(ctx, orderLockKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("lock order %s: %w", id, err)
	}
	defer unlock()

	order, err = w.orders.FindByID(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("find order %s: %w", id, err)
	}
	if order == nil {
		return nil, false, nil
	}

	if err := fn(order); err != nil {
		return order, true, err
	}
	if len(order.DomainEvents()) == 0 {
		return order, true, nil
	}
	if err := w.orders.Save(ctx, order); err != nil {
		return order, true, fmt.Errorf("save order %s: %w", id, err)
	}
	w.publish(ctx, order)
	return order, true, nil
}

// publish forwards pending events and clears them only when delivery succeeded.
func (w *orderWriter) publish(ctx context.Context, order *domain.Order) {
	events := order.DomainEvents()
	if len(events) == 0 {
		return
	}
	if err := w.publisher.PublishDomainEvents(ctx, events); err != nil {
		w.logger.Error("failed to publish order events",
			zap.String("order_id", order.ID().String()),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
		return
	}
	order.ClearDomainEvents()
}
