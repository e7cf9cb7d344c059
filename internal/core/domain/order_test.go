package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventsOfKind(o *Order, kind EventKind) []DomainEvent {
	var out []DomainEvent
	for _, e := range o.DomainEvents() {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateOrder_EmitsOrderPlaced(t *testing.T) {
	order := newTestOrder(t)

	assert.Equal(t, StatusAwaitingPayment, order.Status())
	assert.True(t, order.TotalAmount().Equals(MustMoney("90", "USD")))
	_, paid := order.PaymentID()
	assert.False(t, paid)
	assert.False(t, order.CreatedAt().IsZero())

	events := order.DomainEvents()
	require.Len(t, events, 1)
	placed, ok := events[0].(OrderPlaced)
	require.True(t, ok)
	assert.Equal(t, order.ID(), placed.OrderID())
	assert.Equal(t, order.CartID(), placed.CartID)
	assert.Len(t, placed.Items, 2)
	assert.True(t, placed.TotalAmount.Equals(order.TotalAmount()))
	assert.False(t, placed.EventID().IsZero())
}

func TestCreateOrder_Invariants(t *testing.T) {
	base := OrderParams{
		ID:              NewOrderID(),
		CartID:          NewCartID(),
		CustomerID:      mustCustomerID(t, "c1"),
		Items:           []OrderItem{testItem(t, "p1", "50", 2, "0")},
		ShippingAddress: testAddress(t),
		OrderDiscount:   MustMoney("10", "USD"),
		TotalAmount:     MustMoney("90", "USD"),
	}

	_, err := CreateOrder(base)
	require.NoError(t, err)

	p := base
	p.Items = nil
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrNoOrderItems)
	assert.Contains(t, err.Error(), "at least one item")

	p = base
	p.TotalAmount = MustMoney("100", "USD")
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrTotalMismatch)

	p = base
	p.OrderDiscount = MustMoney("10", "EUR")
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	p = base
	p.Items = []OrderItem{testItem(t, "p1", "50", 2, "0"), foreignItem(t, "EUR")}
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	p = base
	p.OrderDiscount = MustMoney("150", "USD")
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrNegativeMoney)

	p = base
	p.ShippingAddress = ShippingAddress{}
	_, err = CreateOrder(p)
	assert.ErrorIs(t, err, ErrValidation)
}

func foreignItem(t *testing.T, currency string) OrderItem {
	t.Helper()
	snapshot, _ := NewProductSnapshot("Other", "", "OTHER")
	item, err := NewOrderItem(mustProductID(t, "other"), snapshot, MustQuantity(1), MustMoney("1", currency), MustMoney("0", currency))
	require.NoError(t, err)
	return item
}

func TestOrder_MarkAsPaidIsIdempotent(t *testing.T) {
	order := newTestOrder(t)
	p := mustPaymentID(t, "pay-1")

	require.NoError(t, order.MarkAsPaid(p))
	before := order.Snapshot()
	require.NoError(t, order.MarkAsPaid(p))

	assert.Equal(t, before, order.Snapshot())
	assert.Len(t, eventsOfKind(order, EventOrderPaid), 1)
	assert.Equal(t, StatusPaid, order.Status())
	assert.True(t, order.HasProcessedPayment(p))
}

func TestOrder_MarkAsPaidConflict(t *testing.T) {
	order := newTestOrder(t)
	p1, p2 := mustPaymentID(t, "pay-1"), mustPaymentID(t, "pay-2")

	require.NoError(t, order.MarkAsPaid(p1))
	err := order.MarkAsPaid(p2)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, ok := order.PaymentID()
	require.True(t, ok)
	assert.Equal(t, p1, got)
	assert.False(t, order.HasProcessedPayment(p2))
	assert.Len(t, eventsOfKind(order, EventOrderPaid), 1)
}

func TestOrder_ReserveStock(t *testing.T) {
	order := newTestOrder(t)
	r1, r2 := mustReservationID(t, "res-1"), mustReservationID(t, "res-2")

	assert.ErrorIs(t, order.ReserveStock(r1), ErrNotPaid)
	assert.Equal(t, StatusAwaitingPayment, order.Status())

	require.NoError(t, order.MarkAsPaid(mustPaymentID(t, "pay-1")))
	require.NoError(t, order.ReserveStock(r1))
	require.NoError(t, order.ReserveStock(r1))
	assert.Equal(t, StatusStockReserved, order.Status())
	assert.Len(t, eventsOfKind(order, EventOrderStockReserved), 1)

	assert.ErrorIs(t, order.ReserveStock(r2), ErrInvalidTransition)
	got, _ := order.ReservationID()
	assert.Equal(t, r1, got)
	assert.False(t, order.CanBeCancelled())
	assert.ErrorIs(t, order.Cancel("too late"), ErrCannotBeCancelled)
}

func TestOrder_CancelFromPaid(t *testing.T) {
	order := newTestOrder(t)
	p := mustPaymentID(t, "pay-1")
	require.NoError(t, order.MarkAsPaid(p))

	assert.ErrorIs(t, order.Cancel(""), ErrEmptyReason)
	assert.ErrorIs(t, order.Cancel("   "), ErrEmptyReason)
	assert.Equal(t, StatusPaid, order.Status())

	require.NoError(t, order.Cancel("refund requested"))
	assert.Equal(t, StatusCancelled, order.Status())
	assert.Equal(t, "refund requested", order.CancellationReason())
	got, ok := order.PaymentID()
	assert.True(t, ok)
	assert.Equal(t, p, got)

	cancelled := eventsOfKind(order, EventOrderCancelled)
	require.Len(t, cancelled, 1)
	ev := cancelled[0].(OrderCancelled)
	assert.Equal(t, StatusPaid, ev.PreviousState)
	assert.Equal(t, "PAID", string(ev.PreviousState))
	assert.Equal(t, "refund requested", ev.Reason)
}

func TestOrder_CancelledIsTerminal(t *testing.T) {
	order := newTestOrder(t)
	require.NoError(t, order.Cancel("changed my mind"))
	assert.False(t, order.CanBePaid())

	assert.ErrorIs(t, order.Cancel("again"), ErrOrderCancelled)
	assert.ErrorIs(t, order.MarkAsPaid(mustPaymentID(t, "late-pay")), ErrInvalidTransition)
	assert.Equal(t, StatusCancelled, order.Status())
}

func TestOrder_ClearDomainEvents(t *testing.T) {
	order := newTestOrder(t)
	events := order.DomainEvents()
	events[0] = nil
	assert.NotNil(t, order.DomainEvents()[0])

	order.ClearDomainEvents()
	assert.Empty(t, order.DomainEvents())
}

func TestRebuildOrder_RoundTripKeepsIdempotencyKeys(t *testing.T) {
	order := newTestOrder(t)
	p := mustPaymentID(t, "pay-1")
	require.NoError(t, order.MarkAsPaid(p))
	order.SetVersion(3)

	rebuilt, err := RebuildOrder(order.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, order.Snapshot(), rebuilt.Snapshot())
	assert.Empty(t, rebuilt.DomainEvents())

	require.NoError(t, rebuilt.MarkAsPaid(p))
	assert.Empty(t, rebuilt.DomainEvents())

	bad := order.Snapshot()
	bad.TotalAmount = bad.TotalAmount.Add(bad.TotalAmount)
	_, err = RebuildOrder(bad)
	assert.ErrorIs(t, err, ErrTotalMismatch)
}

func TestOrder_TotalsInvariantHolds(t *testing.T) {
	order := newTestOrder(t)
	sum := Zero("USD")
	for _, item := range order.Items() {
		line, err := item.UnitPrice().Multiply(item.Quantity()).Subtract(item.ItemDiscount())
		require.NoError(t, err)
		sum, err = sum.Add(line)
		require.NoError(t, err)
	}
	total, err := sum.Subtract(order.OrderDiscount())
	require.NoError(t, err)
	assert.True(t, total.Equals(order.TotalAmount()))
}
