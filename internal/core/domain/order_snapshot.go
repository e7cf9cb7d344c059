package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSnapshot is the persisted form of an Order. Pending domain events
// are not part of it.
type OrderSnapshot struct {
	ID                      string
	CartID                  string
	CustomerID              string
	Items                   []OrderItemSnapshot
	ShippingAddress         AddressFields
	Status                  string
	Currency                string
	OrderDiscount           decimal.Decimal
	TotalAmount             decimal.Decimal
	PaymentID               string
	ReservationID           string
	CancellationReason      string
	CreatedAt               time.Time
	UpdatedAt               time.Time
	Version                 int
	ProcessedPaymentIDs     []string
	ProcessedReservationIDs []string
}

type OrderItemSnapshot struct {
	ProductID    string
	Name         string
	Description  string
	SKU          string
	Quantity     int
	UnitPrice    decimal.Decimal
	ItemDiscount decimal.Decimal
}

func (o *Order) Snapshot() OrderSnapshot {
	items := make([]OrderItemSnapshot, 0, len(o.items))
	for _, item := range o.items {
		items = append(items, OrderItemSnapshot{
			ProductID:    item.productID.String(),
			Name:         item.product.Name(),
			Description:  item.product.Description(),
			SKU:          item.product.SKU(),
			Quantity:     item.quantity.Int(),
			UnitPrice:    item.unitPrice.Amount(),
			ItemDiscount: item.itemDiscount.Amount(),
		})
	}

	payments := make([]string, 0, len(o.processedPayments))
	for id := range o.processedPayments {
		payments = append(payments, id.String())
	}
	reservations := make([]string, 0, len(o.processedReservations))
	for id := range o.processedReservations {
		reservations = append(reservations, id.String())
	}
	slices.Sort(payments)
	slices.Sort(reservations)

	return OrderSnapshot{
		ID:                      o.id.String(),
		CartID:                  o.cartID.String(),
		CustomerID:              o.customerID.String(),
		Items:                   items,
		ShippingAddress:         o.shippingAddress.Fields(),
		Status:                  string(o.status),
		Currency:                o.totalAmount.Currency().String(),
		OrderDiscount:           o.orderDiscount.Amount(),
		TotalAmount:             o.totalAmount.Amount(),
		PaymentID:               o.paymentID.String(),
		ReservationID:           o.reservationID.String(),
		CancellationReason:      o.cancellationReason,
		CreatedAt:               o.createdAt,
		UpdatedAt:               o.updatedAt,
		Version:                 o.version,
		ProcessedPaymentIDs:     payments,
		ProcessedReservationIDs: reservations,
	}
}

// RebuildOrder restores an order from storage and re-validates it. No
// events are recorded.
func RebuildOrder(s OrderSnapshot) (*Order, error) {
	id, err := ParseOrderID(s.ID)
	if err != nil {
		return nil, err
	}
	cartID, err := ParseCartID(s.CartID)
	if err != nil {
		return nil, err
	}
	customerID, err := ParseCustomerID(s.CustomerID)
	if err != nil {
		return nil, err
	}
	address, err := NewShippingAddress(s.ShippingAddress)
	if err != nil {
		return nil, err
	}
	status := OrderStatus(s.Status)
	if !status.valid() {
		return nil, violationf("invalid order status %q", s.Status)
	}
	discount, err := NewMoney(s.OrderDiscount, s.Currency)
	if err != nil {
		return nil, err
	}
	total, err := NewMoney(s.TotalAmount, s.Currency)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItem, 0, len(s.Items))
	for _, is := range s.Items {
		item, err := rebuildOrderItem(is, s.Currency)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := checkOrderTotals(items, discount, total); err != nil {
		return nil, err
	}

	o := &Order{
		id:                    id,
		cartID:                cartID,
		customerID:            customerID,
		items:                 items,
		shippingAddress:       address,
		status:                status,
		orderDiscount:         discount,
		totalAmount:           total,
		cancellationReason:    s.CancellationReason,
		createdAt:             s.CreatedAt,
		updatedAt:             s.UpdatedAt,
		version:               s.Version,
		processedPayments:     make(map[PaymentID]struct{}, len(s.ProcessedPaymentIDs)),
		processedReservations: make(map[ReservationID]struct{}, len(s.ProcessedReservationIDs)),
	}
	if s.PaymentID != "" {
		if o.paymentID, err = ParsePaymentID(s.PaymentID); err != nil {
			return nil, err
		}
	}
	if s.ReservationID != "" {
		if o.reservationID, err = ParseReservationID(s.ReservationID); err != nil {
			return nil, err
		}
	}
	for _, raw := range s.ProcessedPaymentIDs {
		pid, err := ParsePaymentID(raw)
		if err != nil {
			return nil, err
		}
		o.processedPayments[pid] = struct{}{}
	}
	for _, raw := range s.ProcessedReservationIDs {
		rid, err := ParseReservationID(raw)
		if err != nil {
			return nil, err
		}
		o.processedReservations[rid] = struct{}{}
	}
	return o, nil
}

func rebuildOrderItem(s OrderItemSnapshot, currency string) (OrderItem, error) {
	productID, err := ParseProductID(s.ProductID)
	if err != nil {
		return OrderItem{}, err
	}
	product, err := NewProductSnapshot(s.Name, s.Description, s.SKU)
	if err != nil {
		return OrderItem{}, err
	}
	quantity, err := NewQuantity(s.Quantity)
	if err != nil {
		return OrderItem{}, err
	}
	unitPrice, err := NewMoney(s.UnitPrice, currency)
	if err != nil {
		return OrderItem{}, err
	}
	discount, err := NewMoney(s.ItemDiscount, currency)
	if err != nil {
		return OrderItem{}, err
	}
	return NewOrderItem(productID, product, quantity, unitPrice, discount)
}
