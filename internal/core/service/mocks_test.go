package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/purchase-lifecycle/internal/adapter/storage"
	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

type mockCatalog struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockCatalog) GetProductData(_ context.Context, productID domain.ProductID) (port.ProductData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return port.ProductData{}, m.err
	}
	return port.ProductData{Name: "Product " + productID.String(), SKU: "SKU-" + productID.String()}, nil
}

// mockPricing prices every unit at unitPrice USD and takes orderDiscount off the total.
type mockPricing struct {
	mu            sync.Mutex
	calls         int
	unitPrice     string
	orderDiscount string
	err           error
	tamper        func(*port.PriceQuote)
}

func (m *mockPricing) CalculatePricing(_ context.Context, lines []port.PricingLine) (port.PriceQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return port.PriceQuote{}, m.err
	}

	unit := domain.MustMoney(m.unitPrice, "USD")
	quote := port.PriceQuote{OrderLevelDiscount: domain.MustMoney(m.orderDiscount, "USD")}
	subtotal := domain.Zero("USD")
	for _, line := range lines {
		total := unit.Multiply(line.Quantity)
		quote.Items = append(quote.Items, port.PricedLine{
			ProductID:    line.ProductID,
			UnitPrice:    unit,
			ItemDiscount: domain.Zero("USD"),
			LineTotal:    total,
		})
		subtotal, _ = subtotal.Add(total)
	}
	quote.OrderTotal, _ = subtotal.Subtract(quote.OrderLevelDiscount)
	if m.tamper != nil {
		m.tamper(&quote)
	}
	return quote, nil
}

func (m *mockPricing) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (m *mockPublisher) PublishDomainEvents(_ context.Context, events []domain.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *mockPublisher) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockPublisher) kinds() []domain.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.EventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind())
	}
	return out
}

func (m *mockPublisher) count(kind domain.EventKind) int {
	n := 0
	for _, k := range m.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// flakyCartRepository fails cart saves while failSaves is set.
type flakyCartRepository struct {
	*storage.MemoryCartRepository
	mu        sync.Mutex
	failSaves bool
}

func (r *flakyCartRepository) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	r.mu.Lock()
	fail := r.failSaves
	r.mu.Unlock()
	if fail {
		return errors.New("cart store unavailable")
	}
	return r.MemoryCartRepository.Save(ctx, cart)
}

func (r *flakyCartRepository) setFail(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSaves = fail
}

type fixture struct {
	carts     *flakyCartRepository
	orders    *storage.MemoryOrderRepository
	locker    *storage.MemoryLocker
	catalog   *mockCatalog
	pricing   *mockPricing
	publisher *mockPublisher

	cartService *CartService
	checkout    *CheckoutService
	orderSvc    *OrderService
	payments    *PaymentApprovedHandler
	stock       *StockReservedHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		carts:     &flakyCartRepository{MemoryCartRepository: storage.NewMemoryCartRepository()},
		orders:    storage.NewMemoryOrderRepository(),
		locker:    storage.NewMemoryLocker(),
		catalog:   &mockCatalog{},
		pricing:   &mockPricing{unitPrice: "10", orderDiscount: "0"},
		publisher: &mockPublisher{},
	}
	f.cartService = NewCartService(f.carts, f.locker, nil)
	f.checkout = NewCheckoutService(f.carts, f.orders, NewOrderPricingService(f.catalog, f.pricing),
		NewOrderCreationService(), f.publisher, f.locker, nil)
	f.orderSvc = NewOrderService(f.orders, f.publisher, f.locker, nil)
	f.payments = NewPaymentApprovedHandler(f.orders, f.publisher, f.locker, nil)
	f.stock = NewStockReservedHandler(f.orders, f.publisher, f.locker, nil)
	return f
}

// cartWith creates a saved cart holding quantity units of each product.
func (f *fixture) cartWith(t *testing.T, quantity int, products ...string) *domain.ShoppingCart {
	t.Helper()
	ctx := context.Background()
	cart, err := f.cartService.CreateCart(ctx, customerID(t, "customer-1"))
	require.NoError(t, err)
	for _, p := range products {
		cart, err = f.cartService.AddItem(ctx, cart.ID(), productID(t, p), domain.MustQuantity(quantity))
		require.NoError(t, err)
	}
	return cart
}

func (f *fixture) placeOrder(t *testing.T) *domain.Order {
	t.Helper()
	cart := f.cartWith(t, 2, "p1", "p2")
	order, err := f.checkout.Checkout(context.Background(), cart.ID(), address(t))
	require.NoError(t, err)
	return order
}

func customerID(t *testing.T, s string) domain.CustomerID {
	t.Helper()
	id, err := domain.ParseCustomerID(s)
	require.NoError(t, err)
	return id
}

func productID(t *testing.T, s string) domain.ProductID {
	t.Helper()
	id, err := domain.ParseProductID(s)
	require.NoError(t, err)
	return id
}

func paymentID(t *testing.T, s string) domain.PaymentID {
	t.Helper()
	id, err := domain.ParsePaymentID(s)
	require.NoError(t, err)
	return id
}

func reservationID(t *testing.T, s string) domain.ReservationID {
	t.Helper()
	id, err := domain.ParseReservationID(s)
	require.NoError(t, err)
	return id
}

func address(t *testing.T) domain.ShippingAddress {
	t.Helper()
	addr, err := domain.NewShippingAddress(domain.AddressFields{
		Recipient:  "Ada Lovelace",
		Street:     "12 Analytical Row",
		City:       "London",
		PostalCode: "N1 7AA",
		Country:    "GB",
	})
	require.NoError(t, err)
	return addr
}
