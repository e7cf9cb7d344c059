package domain

import "testing"

func mustProductID(t *testing.T, s string) ProductID {
	t.Helper()
	id, err := ParseProductID(s)
	if err != nil {
		t.Fatalf("product id %q: %v", s, err)
	}
	return id
}

func mustCustomerID(t *testing.T, s string) CustomerID {
	t.Helper()
	id, err := ParseCustomerID(s)
	if err != nil {
		t.Fatalf("customer id %q: %v", s, err)
	}
	return id
}

func mustPaymentID(t *testing.T, s string) PaymentID {
	t.Helper()
	id, err := ParsePaymentID(s)
	if err != nil {
		t.Fatalf("payment id %q: %v", s, err)
	}
	return id
}

func mustReservationID(t *testing.T, s string) ReservationID {
	t.Helper()
	id, err := ParseReservationID(s)
	if err != nil {
		t.Fatalf("reservation id %q: %v", s, err)
	}
	return id
}

func testAddress(t *testing.T) ShippingAddress {
	t.Helper()
	addr, err := NewShippingAddress(AddressFields{
		Recipient:  "Ada Lovelace",
		Street:     "12 Analytical Row",
		City:       "London",
		PostalCode: "N1 7AA",
		Country:    "gb",
	})
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return addr
}

func testItem(t *testing.T, product, unitPrice string, qty int, discount string) OrderItem {
	t.Helper()
	snapshot, err := NewProductSnapshot("Product "+product, "", "SKU-"+product)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	item, err := NewOrderItem(mustProductID(t, product), snapshot, MustQuantity(qty), MustMoney(unitPrice, "USD"), MustMoney(discount, "USD"))
	if err != nil {
		t.Fatalf("order item: %v", err)
	}
	return item
}

// newTestOrder builds a USD order of two items totaling 100.00 with a 10.00 order discount.
func newTestOrder(t *testing.T) *Order {
	t.Helper()
	order, err := CreateOrder(OrderParams{
		ID:              NewOrderID(),
		CartID:          NewCartID(),
		CustomerID:      mustCustomerID(t, "c1"),
		Items:           []OrderItem{testItem(t, "p1", "20.00", 2, "0"), testItem(t, "p2", "15.00", 4, "0")},
		ShippingAddress: testAddress(t),
		OrderDiscount:   MustMoney("10", "USD"),
		TotalAmount:     MustMoney("90", "USD"),
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}
