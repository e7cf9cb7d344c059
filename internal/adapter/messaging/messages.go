package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
)

const (
	TopicOrderEvents     = "order-events"
	TopicPaymentApproved = "payment-approved"
	TopicStockReserved   = "stock-reserved"

	headerEventType = "event_type"
)

type moneyMessage struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type orderItemMessage struct {
	ProductID    string       `json:"productId"`
	Name         string       `json:"name"`
	SKU          string       `json:"sku"`
	Quantity     int          `json:"quantity"`
	UnitPrice    moneyMessage `json:"unitPrice"`
	ItemDiscount moneyMessage `json:"itemDiscount"`
	LineTotal    moneyMessage `json:"lineTotal"`
}

type addressMessage struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// eventMessage is the integration form of every order domain event.
// Fields not carried by an event kind are omitted.
type eventMessage struct {
	EventID         string             `json:"eventId"`
	EventType       string             `json:"eventType"`
	OrderID         string             `json:"orderId"`
	OccurredAt      time.Time          `json:"occurredAt"`
	CustomerID      string             `json:"customerId,omitempty"`
	CartID          string             `json:"cartId,omitempty"`
	Items           []orderItemMessage `json:"items,omitempty"`
	TotalAmount     *moneyMessage      `json:"totalAmount,omitempty"`
	ShippingAddress *addressMessage    `json:"shippingAddress,omitempty"`
	PaymentID       string             `json:"paymentId,omitempty"`
	ReservationID   string             `json:"reservationId,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	PreviousState   string             `json:"previousState,omitempty"`
}

func toMoneyMessage(m domain.Money) moneyMessage {
	return moneyMessage{Amount: m.Amount().StringFixed(2), Currency: m.Currency().String()}
}

func toEventMessage(e domain.DomainEvent) (eventMessage, error) {
	msg := eventMessage{
		EventID:    e.EventID().String(),
		EventType:  string(e.Kind()),
		OrderID:    e.OrderID().String(),
		OccurredAt: e.OccurredAt(),
	}

	switch ev := e.(type) {
	case domain.OrderPlaced:
		total := toMoneyMessage(ev.TotalAmount)
		f := ev.ShippingAddress.Fields()
		msg.CustomerID = ev.CustomerID.String()
		msg.CartID = ev.CartID.String()
		msg.TotalAmount = &total
		msg.ShippingAddress = &addressMessage{
			Recipient:  f.Recipient,
			Street:     f.Street,
			City:       f.City,
			State:      f.State,
			PostalCode: f.PostalCode,
			Country:    f.Country,
		}
		for _, item := range ev.Items {
			msg.Items = append(msg.Items, orderItemMessage{
				ProductID:    item.ProductID().String(),
				Name:         item.Product().Name(),
				SKU:          item.Product().SKU(),
				Quantity:     item.Quantity().Int(),
				UnitPrice:    toMoneyMessage(item.UnitPrice()),
				ItemDiscount: toMoneyMessage(item.ItemDiscount()),
				LineTotal:    toMoneyMessage(item.LineTotal()),
			})
		}
	case domain.OrderPaid:
		msg.PaymentID = ev.PaymentID.String()
	case domain.OrderStockReserved:
		msg.ReservationID = ev.ReservationID.String()
	case domain.OrderCancelled:
		msg.Reason = ev.Reason
		msg.PreviousState = string(ev.PreviousState)
	default:
		return eventMessage{}, fmt.Errorf("unsupported event %T", e)
	}
	return msg, nil
}

// encodeEvent keys the message by order id so one order's events stay on a
// single partition.
func encodeEvent(e domain.DomainEvent) (kafka.Message, error) {
	msg, err := toEventMessage(e)
	if err != nil {
		return kafka.Message{}, err
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", msg.EventType, err)
	}
	return kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: headerEventType, Value: []byte(msg.EventType)},
		},
	}, nil
}

type paymentApprovedMessage struct {
	OrderID        string    `json:"orderId"`
	PaymentID      string    `json:"paymentId"`
	ApprovedAmount string    `json:"approvedAmount"`
	Currency       string    `json:"currency"`
	Timestamp      time.Time `json:"timestamp"`
}

type reservedItemMessage struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type stockReservedMessage struct {
	OrderID       string                `json:"orderId"`
	ReservationID string                `json:"reservationId"`
	Items         []reservedItemMessage `json:"items"`
	Timestamp     time.Time             `json:"timestamp"`
}

func decodePaymentApproved(value []byte) (service.PaymentApproved, error) {
	var msg paymentApprovedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return service.PaymentApproved{}, fmt.Errorf("unmarshal payment approved: %w", err)
	}
	orderID, err := domain.ParseOrderID(msg.OrderID)
	if err != nil {
		return service.PaymentApproved{}, err
	}
	paymentID, err := domain.ParsePaymentID(msg.PaymentID)
	if err != nil {
		return service.PaymentApproved{}, err
	}
	amount, err := domain.ParseMoney(msg.ApprovedAmount, msg.Currency)
	if err != nil {
		return service.PaymentApproved{}, err
	}
	return service.PaymentApproved{
		OrderID:        orderID,
		PaymentID:      paymentID,
		ApprovedAmount: amount,
		Timestamp:      msg.Timestamp,
	}, nil
}

func decodeStockReserved(value []byte) (service.StockReserved, error) {
	var msg stockReservedMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return service.StockReserved{}, fmt.Errorf("unmarshal stock reserved: %w", err)
	}
	orderID, err := domain.ParseOrderID(msg.OrderID)
	if err != nil {
		return service.StockReserved{}, err
	}
	reservationID, err := domain.ParseReservationID(msg.ReservationID)
	if err != nil {
		return service.StockReserved{}, err
	}
	items := make([]service.ReservedItem, 0, len(msg.Items))
	for _, item := range msg.Items {
		productID, err := domain.ParseProductID(item.ProductID)
		if err != nil {
			return service.StockReserved{}, err
		}
		items = append(items, service.ReservedItem{ProductID: productID, Quantity: item.Quantity})
	}
	return service.StockReserved{
		OrderID:       orderID,
		ReservationID: reservationID,
		Items:         items,
		Timestamp:     msg.Timestamp,
	}, nil
}
