package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// PaymentApproved is the inbound notice that a payment for an order went through.
type PaymentApproved struct {
	OrderID        domain.OrderID
	PaymentID      domain.PaymentID
	ApprovedAmount domain.Money
	Timestamp      time.Time
}

// PaymentApprovedHandler applies PaymentApproved notices. Deliveries are at
// least once; the order's processed payment ids absorb duplicates.
type PaymentApprovedHandler struct {
	writer *orderWriter
	logger *zap.Logger
}

func NewPaymentApprovedHandler(orders port.OrderRepository, publisher port.EventPublisher, locker port.Locker, logger *zap.Logger) *PaymentApprovedHandler {
	logger = nopIfNil(logger)
	return &PaymentApprovedHandler{
		writer: &orderWriter{orders: orders, publisher: publisher, locker: locker, logger: logger},
		logger: logger,
	}
}

func (h *PaymentApprovedHandler) Handle(ctx context.Context, msg PaymentApproved) error {
	log := h.logger.With(
		zap.String("order_id", msg.OrderID.String()),
		zap.String("payment_id", msg.PaymentID.String()),
	)

	_, found, err := h.writer.apply(ctx, msg.OrderID, func(order *domain.Order) error {
		if order.HasProcessedPayment(msg.PaymentID) {
			log.Info("duplicate payment approval ignored")
			return nil
		}
		if !msg.ApprovedAmount.Equals(order.TotalAmount()) {
			log.Warn("approved amount differs from order total",
				zap.String("approved", msg.ApprovedAmount.String()),
				zap.String("total", order.TotalAmount().String()),
			)
		}
		return order.MarkAsPaid(msg.PaymentID)
	})
	if err != nil {
		return fmt.Errorf("apply payment %s to order %s: %w", msg.PaymentID, msg.OrderID, err)
	}
	if !found {
		log.Info("payment approval for unknown order skipped")
		return nil
	}
	log.Info("payment approval applied")
	return nil
}
