package domain

import "time"

type EventKind string

const (
	EventOrderPlaced        EventKind = "order.placed"
	EventOrderPaid          EventKind = "order.paid"
	EventOrderStockReserved EventKind = "order.stock_reserved"
	EventOrderCancelled     EventKind = "order.cancelled"
)

// DomainEvent is implemented only by the event types in this file.
type DomainEvent interface {
	EventID() EventID
	OrderID() OrderID
	Kind() EventKind
	OccurredAt() time.Time
	domainEvent()
}

type eventHeader struct {
	eventID    EventID
	orderID    OrderID
	occurredAt time.Time
}

func newEventHeader(orderID OrderID, at time.Time) eventHeader {
	return eventHeader{eventID: NewEventID(), orderID: orderID, occurredAt: at}
}

func (h eventHeader) EventID() EventID      { return h.eventID }
func (h eventHeader) OrderID() OrderID      { return h.orderID }
func (h eventHeader) OccurredAt() time.Time { return h.occurredAt }
func (h eventHeader) domainEvent()          {}

type OrderPlaced struct {
	eventHeader
	CustomerID      CustomerID
	CartID          CartID
	Items           []OrderItem
	TotalAmount     Money
	ShippingAddress ShippingAddress
}

func (OrderPlaced) Kind() EventKind { return EventOrderPlaced }

type OrderPaid struct {
	eventHeader
	PaymentID PaymentID
}

func (OrderPaid) Kind() EventKind { return EventOrderPaid }

type OrderStockReserved struct {
	eventHeader
	ReservationID ReservationID
}

func (OrderStockReserved) Kind() EventKind { return EventOrderStockReserved }

type OrderCancelled struct {
	eventHeader
	Reason        string
	PreviousState OrderStatus
}

func (OrderCancelled) Kind() EventKind { return EventOrderCancelled }
