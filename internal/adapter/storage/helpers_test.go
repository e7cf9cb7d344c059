package storage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

func newCart(t *testing.T, customer string, products ...string) *domain.ShoppingCart {
	t.Helper()
	customerID, err := domain.ParseCustomerID(customer)
	require.NoError(t, err)
	cart, err := domain.NewShoppingCart(domain.NewCartID(), customerID)
	require.NoError(t, err)
	for _, p := range products {
		productID, err := domain.ParseProductID(p)
		require.NoError(t, err)
		require.NoError(t, cart.AddItem(productID, domain.MustQuantity(2)))
	}
	return cart
}

// newOrder builds a USD order for cartID: 2 x 12.50 less 5.00 item discount, 3.00 order discount.
func newOrder(t *testing.T, cartID domain.CartID) *domain.Order {
	t.Helper()
	productID, err := domain.ParseProductID("sku-1")
	require.NoError(t, err)
	customerID, err := domain.ParseCustomerID("customer-1")
	require.NoError(t, err)
	snapshot, err := domain.NewProductSnapshot("Kettle", "Steel kettle", "KT-1")
	require.NoError(t, err)
	item, err := domain.NewOrderItem(productID, snapshot, domain.MustQuantity(2),
		domain.MustMoney("12.50", "USD"), domain.MustMoney("5", "USD"))
	require.NoError(t, err)
	address, err := domain.NewShippingAddress(domain.AddressFields{
		Recipient:  "Grace Hopper",
		Street:     "1 Navy Yard",
		City:       "Arlington",
		PostalCode: "22202",
		Country:    "US",
	})
	require.NoError(t, err)

	order, err := domain.CreateOrder(domain.OrderParams{
		ID:              domain.NewOrderID(),
		CartID:          cartID,
		CustomerID:      customerID,
		Items:           []domain.OrderItem{item},
		ShippingAddress: address,
		OrderDiscount:   domain.MustMoney("3", "USD"),
		TotalAmount:     domain.MustMoney("17", "USD"),
	})
	require.NoError(t, err)
	return order
}

func mustPayment(t *testing.T, s string) domain.PaymentID {
	t.Helper()
	id, err := domain.ParsePaymentID(s)
	require.NoError(t, err)
	return id
}
