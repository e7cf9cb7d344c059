package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// OrderService serves user-facing order operations, where a missing order is an error.
type OrderService struct {
	writer *orderWriter
	logger *zap.Logger
}

func NewOrderService(orders port.OrderRepository, publisher port.EventPublisher, locker port.Locker, logger *zap.Logger) *OrderService {
	logger = nopIfNil(logger)
	return &OrderService{
		writer: &orderWriter{orders: orders, publisher: publisher, locker: locker, logger: logger},
		logger: logger,
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	order, err := s.writer.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return order, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, id domain.OrderID, reason string) (*domain.Order, error) {
	order, found, err := s.writer.apply(ctx, id, func(o *domain.Order) error {
		return o.Cancel(reason)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	s.logger.Info("order cancelled", zap.String("order_id", id.String()))
	return order, nil
}
