package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/purchase-lifecycle/internal/adapter/gateway"
	"github.com/rl1809/purchase-lifecycle/internal/adapter/storage"
	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

func (p *recordingPublisher) PublishDomainEvents(_ context.Context, events []domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) kinds() []domain.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]domain.EventKind, 0, len(p.events))
	for _, e := range p.events {
		kinds = append(kinds, e.Kind())
	}
	return kinds
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingPublisher) {
	t.Helper()
	catalog, err := gateway.NewStaticCatalog(gateway.DefaultProducts())
	require.NoError(t, err)
	pricing, err := gateway.NewStaticPricing(gateway.DefaultProducts(), gateway.DefaultPricingRules())
	require.NoError(t, err)

	carts := storage.NewMemoryCartRepository()
	orders := storage.NewMemoryOrderRepository()
	locker := storage.NewMemoryLocker()
	publisher := &recordingPublisher{}

	h := NewHTTPHandler(
		service.NewCartService(carts, locker, nil),
		service.NewCheckoutService(carts, orders, service.NewOrderPricingService(catalog, pricing),
			service.NewOrderCreationService(), publisher, locker, nil),
		service.NewOrderService(orders, publisher, locker, nil),
		nil,
	)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, publisher
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

var testAddress = AddressBody{
	Recipient:  "Ada Lovelace",
	Street:     "12 Analytical Row",
	City:       "London",
	PostalCode: "N1 7AA",
	Country:    "GB",
}

func TestHTTP_CartToCancelledOrder(t *testing.T) {
	srv, publisher := newTestServer(t)

	var cart CartBody
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/carts", CreateCartRequest{CustomerID: "c-42"}, &cart))
	assert.Equal(t, "ACTIVE", cart.Status)

	base := "/api/carts/" + cart.ID
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "sku-mug", Quantity: 4}, &cart))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "sku-mug", Quantity: 2}, &cart))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "sku-grinder", Quantity: 1}, &cart))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, base+"/items/sku-grinder", UpdateItemRequest{Quantity: 2}, &cart))
	require.Len(t, cart.Items, 2)
	assert.Equal(t, CartItemBody{ProductID: "sku-mug", Quantity: 6}, cart.Items[0])

	var order OrderBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/checkout", CheckoutRequest{ShippingAddress: testAddress}, &order))
	assert.Equal(t, "AWAITING_PAYMENT", order.Status)
	assert.Equal(t, MoneyBody{Amount: "288.70", Currency: "USD"}, order.TotalAmount)
	assert.Equal(t, MoneyBody{Amount: "15.20", Currency: "USD"}, order.OrderDiscount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "MG-350", order.Items[0].SKU)

	var again OrderBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/checkout", CheckoutRequest{ShippingAddress: testAddress}, &again))
	assert.Equal(t, order.ID, again.ID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "sku-beans", Quantity: 1}, &errResp))
	assert.Equal(t, string(domain.KindInvalidTransition), errResp.Kind)
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodDelete, base, nil, &errResp))

	var cancelled OrderBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/orders/"+order.ID+"/cancel", CancelOrderRequest{Reason: "found it cheaper"}, &cancelled))
	assert.Equal(t, "CANCELLED", cancelled.Status)
	assert.Equal(t, "found it cheaper", cancelled.CancellationReason)

	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/api/orders/"+order.ID+"/cancel", CancelOrderRequest{Reason: "again"}, &errResp))

	var fetched OrderBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/orders/"+order.ID, nil, &fetched))
	assert.Equal(t, "CANCELLED", fetched.Status)

	assert.Equal(t, []domain.EventKind{domain.EventOrderPlaced, domain.EventOrderCancelled}, publisher.kinds())
}

func TestHTTP_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	var errResp ErrorResponse

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/api/carts", CreateCartRequest{CustomerID: " "}, &errResp))
	assert.Equal(t, string(domain.KindValidation), errResp.Kind)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/carts/not-a-uuid", nil, &errResp))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/carts/"+domain.NewCartID().String(), nil, &errResp))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/orders/"+domain.NewOrderID().String(), nil, &errResp))

	var cart CartBody
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/carts", CreateCartRequest{CustomerID: "c-1"}, &cart))
	base := "/api/carts/" + cart.ID

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "sku-mug", Quantity: 11}, &errResp))
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, base+"/checkout", CheckoutRequest{ShippingAddress: testAddress}, &errResp))
	assert.Equal(t, string(domain.KindInvariant), errResp.Kind)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, base+"/items", AddItemRequest{ProductID: "ghost", Quantity: 1}, &cart))
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, base+"/checkout", CheckoutRequest{ShippingAddress: testAddress}, &errResp))
	assert.Equal(t, "unknown_product", errResp.Kind)

	badAddress := testAddress
	badAddress.Country = "GBR"
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, base+"/checkout", CheckoutRequest{ShippingAddress: badAddress}, &errResp))

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, base+"/items/sku-mug", nil, &errResp))
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, base, nil, nil))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/carts", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_ListCustomerCarts(t *testing.T) {
	srv, _ := newTestServer(t)
	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/carts", CreateCartRequest{CustomerID: "c-7"}, &CartBody{}))
	}
	var carts []CartBody
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/customers/c-7/carts", nil, &carts))
	assert.Len(t, carts, 2)

	var health map[string]string
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "ok", health["status"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("save: %w", port.ErrConcurrentModification), http.StatusConflict},
		{gobreaker.ErrOpenState, http.StatusServiceUnavailable},
		{fmt.Errorf("price: %w", service.ErrPricingInconsistent), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
		{domain.ErrEmptyReason, http.StatusBadRequest},
	}
	for _, tt := range tests {
		got, _ := statusOf(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
