package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/adapter/gateway"
	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/core/service"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

type HTTPHandler struct {
	carts    *service.CartService
	checkout *service.CheckoutService
	orders   *service.OrderService
	logger   *zap.Logger
}

func NewHTTPHandler(carts *service.CartService, checkout *service.CheckoutService, orders *service.OrderService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{carts: carts, checkout: checkout, orders: orders, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/carts", h.CreateCart)
		r.Get("/customers/{customerID}/carts", h.ListCustomerCarts)

		r.Route("/carts/{cartID}", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.DeleteCart)
			r.Post("/items", h.AddItem)
			r.Put("/items/{productID}", h.UpdateItemQuantity)
			r.Delete("/items/{productID}", h.RemoveItem)
			r.Post("/checkout", h.Checkout)
		})

		r.Route("/orders/{orderID}", func(r chi.Router) {
			r.Get("/", h.GetOrder)
			r.Post("/cancel", h.CancelOrder)
		})
	})
	return r
}

type CreateCartRequest struct {
	CustomerID string `json:"customerId"`
}

type AddItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	ShippingAddress AddressBody `json:"shippingAddress"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *HTTPHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if !h.decode(w, r, &req) {
		return
	}
	customerID, err := domain.ParseCustomerID(req.CustomerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.carts.CreateCart(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartBody(cart))
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(r.Context(), cartID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartBody(cart))
}

func (h *HTTPHandler) ListCustomerCarts(w http.ResponseWriter, r *http.Request) {
	customerID, err := domain.ParseCustomerID(chi.URLParam(r, "customerID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	carts, err := h.carts.ListCustomerCarts(r.Context(), customerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	bodies := make([]CartBody, 0, len(carts))
	for _, cart := range carts {
		bodies = append(bodies, toCartBody(cart))
	}
	writeJSON(w, http.StatusOK, bodies)
}

func (h *HTTPHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	if err := h.carts.DeleteCart(r.Context(), cartID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	productID, err := domain.ParseProductID(req.ProductID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	quantity, err := domain.NewQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.carts.AddItem(r.Context(), cartID, productID, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartBody(cart))
}

func (h *HTTPHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	productID, err := domain.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	quantity, err := domain.NewQuantity(req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.carts.UpdateItemQuantity(r.Context(), cartID, productID, quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartBody(cart))
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	productID, err := domain.ParseProductID(chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.carts.RemoveItem(r.Context(), cartID, productID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartBody(cart))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	cartID, ok := h.cartID(w, r)
	if !ok {
		return
	}
	var req CheckoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	address, err := domain.NewShippingAddress(req.ShippingAddress.fields())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	order, err := h.checkout.Checkout(r.Context(), cartID, address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderBody(order))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderBody(order))
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req CancelOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orders.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderBody(order))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) cartID(w http.ResponseWriter, r *http.Request) (domain.CartID, bool) {
	id, err := domain.ParseCartID(chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeError(w, r, err)
		return domain.CartID{}, false
	}
	return id, true
}

func (h *HTTPHandler) orderID(w http.ResponseWriter, r *http.Request) (domain.OrderID, bool) {
	id, err := domain.ParseOrderID(chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, r, err)
		return domain.OrderID{}, false
	}
	return id, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Kind: string(domain.KindValidation)})
		return false
	}
	return true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusOf(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{Error: message, Kind: kind})
}

// statusOf maps domain error kinds and infrastructure failures to HTTP statuses.
func statusOf(err error) (int, string) {
	switch kind := domain.KindOf(err); kind {
	case domain.KindValidation:
		return http.StatusBadRequest, string(kind)
	case domain.KindInvariant:
		return http.StatusUnprocessableEntity, string(kind)
	case domain.KindInvalidTransition:
		return http.StatusConflict, string(kind)
	case domain.KindNotFound:
		return http.StatusNotFound, string(kind)
	}

	switch {
	case errors.Is(err, port.ErrConcurrentModification):
		return http.StatusConflict, "conflict"
	case errors.Is(err, gateway.ErrUnknownProduct):
		return http.StatusUnprocessableEntity, "unknown_product"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable, ""
	case errors.Is(err, service.ErrPricingInconsistent):
		return http.StatusBadGateway, ""
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ""
	default:
		return http.StatusInternalServerError, ""
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type CartItemBody struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CartBody struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customerId"`
	Status     string         `json:"status"`
	Items      []CartItemBody `json:"items"`
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

func toCartBody(cart *domain.ShoppingCart) CartBody {
	items := make([]CartItemBody, 0, cart.ItemCount())
	for _, item := range cart.Items() {
		items = append(items, CartItemBody{ProductID: item.ProductID().String(), Quantity: item.Quantity().Int()})
	}
	return CartBody{
		ID:         cart.ID().String(),
		CustomerID: cart.CustomerID().String(),
		Status:     string(cart.Status()),
		Items:      items,
		Version:    cart.Version(),
		CreatedAt:  cart.CreatedAt(),
		UpdatedAt:  cart.UpdatedAt(),
	}
}

type MoneyBody struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func toMoneyBody(m domain.Money) MoneyBody {
	return MoneyBody{Amount: m.Amount().StringFixed(2), Currency: m.Currency().String()}
}

type AddressBody struct {
	Recipient  string `json:"recipient"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func toAddressBody(addr domain.ShippingAddress) AddressBody {
	f := addr.Fields()
	return AddressBody{
		Recipient:  f.Recipient,
		Street:     f.Street,
		City:       f.City,
		State:      f.State,
		PostalCode: f.PostalCode,
		Country:    f.Country,
	}
}

func (a AddressBody) fields() domain.AddressFields {
	return domain.AddressFields{
		Recipient:  a.Recipient,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type OrderItemBody struct {
	ProductID    string    `json:"productId"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SKU          string    `json:"sku"`
	Quantity     int       `json:"quantity"`
	UnitPrice    MoneyBody `json:"unitPrice"`
	ItemDiscount MoneyBody `json:"itemDiscount"`
	LineTotal    MoneyBody `json:"lineTotal"`
}

type OrderBody struct {
	ID                 string          `json:"id"`
	CartID             string          `json:"cartId"`
	CustomerID         string          `json:"customerId"`
	Status             string          `json:"status"`
	Items              []OrderItemBody `json:"items"`
	OrderDiscount      MoneyBody       `json:"orderDiscount"`
	TotalAmount        MoneyBody       `json:"totalAmount"`
	ShippingAddress    AddressBody     `json:"shippingAddress"`
	PaymentID          string          `json:"paymentId,omitempty"`
	ReservationID      string          `json:"reservationId,omitempty"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	Version            int             `json:"version"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func toOrderBody(order *domain.Order) OrderBody {
	items := make([]OrderItemBody, 0, len(order.Items()))
	for _, item := range order.Items() {
		items = append(items, OrderItemBody{
			ProductID:    item.ProductID().String(),
			Name:         item.Product().Name(),
			Description:  item.Product().Description(),
			SKU:          item.Product().SKU(),
			Quantity:     item.Quantity().Int(),
			UnitPrice:    toMoneyBody(item.UnitPrice()),
			ItemDiscount: toMoneyBody(item.ItemDiscount()),
			LineTotal:    toMoneyBody(item.LineTotal()),
		})
	}
	body := OrderBody{
		ID:                 order.ID().String(),
		CartID:             order.CartID().String(),
		CustomerID:         order.CustomerID().String(),
		Status:             string(order.Status()),
		Items:              items,
		OrderDiscount:      toMoneyBody(order.OrderDiscount()),
		TotalAmount:        toMoneyBody(order.TotalAmount()),
		ShippingAddress:    toAddressBody(order.ShippingAddress()),
		CancellationReason: order.CancellationReason(),
		Version:            order.Version(),
		CreatedAt:          order.CreatedAt(),
		UpdatedAt:          order.UpdatedAt(),
	}
	if id, ok := order.PaymentID(); ok {
		body.PaymentID = id.String()
	}
	if id, ok := order.ReservationID(); ok {
		body.ReservationID = id.String()
	}
	return body
}
