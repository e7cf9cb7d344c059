package service

import (
	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

// OrderCreationService holds the cart to order conversion rule.
type OrderCreationService struct{}

func NewOrderCreationService() *OrderCreationService {
	return &OrderCreationService{}
}

// CanConvertCart reports whether cart is non-empty and not yet converted.
func (s *OrderCreationService) CanConvertCart(cart *domain.ShoppingCart) bool {
	return !cart.IsEmpty() && !cart.IsConverted()
}

func (s *OrderCreationService) CreateFromCart(cart *domain.ShoppingCart, priced PricedOrder, address domain.ShippingAddress) (*domain.Order, error) {
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyCart
	}
	return domain.CreateOrder(domain.OrderParams{
		ID:              domain.NewOrderID(),
		CartID:          cart.ID(),
		CustomerID:      cart.CustomerID(),
		Items:           priced.Items,
		ShippingAddress: address,
		OrderDiscount:   priced.OrderLevelDiscount,
		TotalAmount:     priced.OrderTotal,
	})
}
