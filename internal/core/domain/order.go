package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "AWAITING_PAYMENT"
	StatusPaid            OrderStatus = "PAID"
	StatusStockReserved   OrderStatus = "STOCK_RESERVED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

func (s OrderStatus) valid() bool {
	switch s {
	case StatusAwaitingPayment, StatusPaid, StatusStockReserved, StatusCancelled:
		return true
	}
	return false
}

// Order is the aggregate root of a placed purchase.
//
// Externally triggered transitions are keyed: a payment or reservation id
// that was already applied is accepted again without any effect, while a
// different id arriving in the wrong state is an invalid transition.
type Order struct {
	id                 OrderID
	cartID             CartID
	customerID         CustomerID
	items              []OrderItem
	shippingAddress    ShippingAddress
	status             OrderStatus
	orderDiscount      Money
	totalAmount        Money
	paymentID          PaymentID
	reservationID      ReservationID
	cancellationReason string
	createdAt          time.Time
	updatedAt          time.Time
	version            int

	processedPayments     map[PaymentID]struct{}
	processedReservations map[ReservationID]struct{}

	events []DomainEvent
}

// OrderParams carries the inputs of CreateOrder.
type OrderParams struct {
	ID              OrderID
	CartID          CartID
	CustomerID      CustomerID
	Items           []OrderItem
	ShippingAddress ShippingAddress
	OrderDiscount   Money
	TotalAmount     Money
}

// CreateOrder validates p and returns an order awaiting payment with an
// OrderPlaced event pending.
func CreateOrder(p OrderParams) (*Order, error) {
	if p.ID.IsZero() {
		return nil, invalidf("order id is required")
	}
	if p.CartID.IsZero() {
		return nil, invalidf("order cart id is required")
	}
	if p.CustomerID.IsZero() {
		return nil, invalidf("order customer id is required")
	}
	if p.ShippingAddress.IsZero() {
		return nil, invalidf("order shipping address is required")
	}
	if err := checkOrderTotals(p.Items, p.OrderDiscount, p.TotalAmount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &Order{
		id:                    p.ID,
		cartID:                p.CartID,
		customerID:            p.CustomerID,
		items:                 append([]OrderItem(nil), p.Items...),
		shippingAddress:       p.ShippingAddress,
		status:                StatusAwaitingPayment,
		orderDiscount:         p.OrderDiscount,
		totalAmount:           p.TotalAmount,
		createdAt:             now,
		updatedAt:             now,
		processedPayments:     make(map[PaymentID]struct{}),
		processedReservations: make(map[ReservationID]struct{}),
	}
	o.record(OrderPlaced{
		eventHeader:     newEventHeader(o.id, now),
		CustomerID:      o.customerID,
		CartID:          o.cartID,
		Items:           o.Items(),
		TotalAmount:     o.totalAmount,
		ShippingAddress: o.shippingAddress,
	})
	return o, nil
}

// checkOrderTotals enforces a non-empty single-currency order whose total
// equals the sum of line totals minus the order-level discount.
func checkOrderTotals(items []OrderItem, discount, total Money) error {
	if len(items) == 0 {
		return ErrNoOrderItems
	}
	currency := total.Currency()
	if discount.Currency() != currency {
		return fmt.Errorf("order discount: %w", ErrCurrencyMismatch)
	}
	subtotal := Zero(currency)
	for _, item := range items {
		if item.UnitPrice().Currency() != currency {
			return fmt.Errorf("order item %s: %w", item.ProductID(), ErrCurrencyMismatch)
		}
		var err error
		if subtotal, err = subtotal.Add(item.LineTotal()); err != nil {
			return err
		}
	}
	expected, err := subtotal.Subtract(discount)
	if err != nil {
		return fmt.Errorf("order discount exceeds subtotal: %w", err)
	}
	if !expected.Equals(total) {
		return fmt.Errorf("%w: expected %s, got %s", ErrTotalMismatch, expected, total)
	}
	return nil
}

func (o *Order) ID() OrderID                      { return o.id }
func (o *Order) CartID() CartID                   { return o.cartID }
func (o *Order) CustomerID() CustomerID           { return o.customerID }
func (o *Order) ShippingAddress() ShippingAddress { return o.shippingAddress }
func (o *Order) Status() OrderStatus              { return o.status }
func (o *Order) OrderDiscount() Money             { return o.orderDiscount }
func (o *Order) TotalAmount() Money               { return o.totalAmount }
func (o *Order) CancellationReason() string       { return o.cancellationReason }
func (o *Order) CreatedAt() time.Time             { return o.createdAt }
func (o *Order) UpdatedAt() time.Time             { return o.updatedAt }
func (o *Order) Version() int                     { return o.version }

// SetVersion is for repositories recording a successful save.
func (o *Order) SetVersion(version int) { o.version = version }

// Items returns a copy of the order lines.
func (o *Order) Items() []OrderItem {
	return append([]OrderItem(nil), o.items...)
}

// PaymentID reports the payment that settled the order, if any.
func (o *Order) PaymentID() (PaymentID, bool) {
	return o.paymentID, !o.paymentID.IsZero()
}

func (o *Order) ReservationID() (ReservationID, bool) {
	return o.reservationID, !o.reservationID.IsZero()
}

func (o *Order) CanBePaid() bool {
	return o.status == StatusAwaitingPayment
}

func (o *Order) CanBeCancelled() bool {
	return o.status == StatusAwaitingPayment || o.status == StatusPaid
}

func (o *Order) HasProcessedPayment(id PaymentID) bool {
	_, ok := o.processedPayments[id]
	return ok
}

func (o *Order) HasProcessedReservation(id ReservationID) bool {
	_, ok := o.processedReservations[id]
	return ok
}

// MarkAsPaid moves AWAITING_PAYMENT to PAID. Repeating an already applied
// paymentID succeeds without effect.
func (o *Order) MarkAsPaid(paymentID PaymentID) error {
	if paymentID.IsZero() {
		return invalidf("payment id is required")
	}
	if o.HasProcessedPayment(paymentID) {
		return nil
	}
	if o.status != StatusAwaitingPayment {
		return fmt.Errorf("mark order %s paid with %s from %s: %w", o.id, paymentID, o.status, ErrNotAwaitingPayment)
	}

	now := time.Now().UTC()
	o.status = StatusPaid
	o.paymentID = paymentID
	o.processedPayments[paymentID] = struct{}{}
	o.updatedAt = now
	o.record(OrderPaid{eventHeader: newEventHeader(o.id, now), PaymentID: paymentID})
	return nil
}

// ReserveStock moves PAID to STOCK_RESERVED, keyed on reservationID like MarkAsPaid.
func (o *Order) ReserveStock(reservationID ReservationID) error {
	if reservationID.IsZero() {
		return invalidf("reservation id is required")
	}
	if o.HasProcessedReservation(reservationID) {
		return nil
	}
	if o.status != StatusPaid {
		return fmt.Errorf("reserve stock for order %s with %s from %s: %w", o.id, reservationID, o.status, ErrNotPaid)
	}

	now := time.Now().UTC()
	o.status = StatusStockReserved
	o.reservationID = reservationID
	o.processedReservations[reservationID] = struct{}{}
	o.updatedAt = now
	o.record(OrderStockReserved{eventHeader: newEventHeader(o.id, now), ReservationID: reservationID})
	return nil
}

// Cancel moves AWAITING_PAYMENT or PAID to CANCELLED. The payment id of a
// paid order is kept for refund bookkeeping.
func (o *Order) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrEmptyReason
	}
	if o.status == StatusCancelled {
		return fmt.Errorf("cancel order %s: %w", o.id, ErrOrderCancelled)
	}
	if !o.CanBeCancelled() {
		return fmt.Errorf("cancel order %s from %s: %w", o.id, o.status, ErrCannotBeCancelled)
	}

	now := time.Now().UTC()
	previous := o.status
	o.status = StatusCancelled
	o.cancellationReason = reason
	o.updatedAt = now
	o.record(OrderCancelled{eventHeader: newEventHeader(o.id, now), Reason: reason, PreviousState: previous})
	return nil
}

// DomainEvents returns the events recorded since the last ClearDomainEvents.
func (o *Order) DomainEvents() []DomainEvent {
	return append([]DomainEvent(nil), o.events...)
}

// ClearDomainEvents is called once the events have been published.
func (o *Order) ClearDomainEvents() {
	o.events = nil
}

func (o *Order) record(e DomainEvent) {
	o.events = append(o.events, e)
}
