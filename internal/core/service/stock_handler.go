package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

type ReservedItem struct {
	ProductID domain.ProductID
	Quantity  int
}

// StockReserved is the inbound notice that inventory was set aside for an order.
type StockReserved struct {
	OrderID       domain.OrderID
	ReservationID domain.ReservationID
	Items         []ReservedItem
	Timestamp     time.Time
}

type StockReservedHandler struct {
	writer *orderWriter
	logger *zap.Logger
}

func NewStockReservedHandler(orders port.OrderRepository, publisher port.EventPublisher, locker port.Locker, logger *zap.Logger) *StockReservedHandler {
	logger = nopIfNil(logger)
	return &StockReservedHandler{
		writer: &orderWriter{orders: orders, publisher: publisher, locker: locker, logger: logger},
		logger: logger,
	}
}

func (h *StockReservedHandler) Handle(ctx context.Context, msg StockReserved) error {
	log := h.logger.With(
		zap.String("order_id", msg.OrderID.String()),
		zap.String("reservation_id", msg.ReservationID.String()),
	)

	_, found, err := h.writer.apply(ctx, msg.OrderID, func(order *domain.Order) error {
		if order.HasProcessedReservation(msg.ReservationID) {
			log.Info("duplicate stock reservation ignored")
			return nil
		}
		if missing := unreservedProducts(order, msg.Items); len(missing) > 0 {
			log.Warn("reservation does not cover every order line", zap.Strings("products", missing))
		}
		return order.ReserveStock(msg.ReservationID)
	})
	if err != nil {
		return fmt.Errorf("apply reservation %s to order %s: %w", msg.ReservationID, msg.OrderID, err)
	}
	if !found {
		log.Info("stock reservation for unknown order skipped")
		return nil
	}
	log.Info("stock reservation applied")
	return nil
}

// unreservedProducts lists order lines the reservation does not fully cover.
func unreservedProducts(order *domain.Order, reserved []ReservedItem) []string {
	got := make(map[domain.ProductID]int, len(reserved))
	for _, r := range reserved {
		got[r.ProductID] += r.Quantity
	}
	var missing []string
	for _, item := range order.Items() {
		if got[item.ProductID()] < item.Quantity().Int() {
			missing = append(missing, item.ProductID().String())
		}
	}
	return missing
}
