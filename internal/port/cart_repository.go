package port

import (
	"context"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

type ShoppingCartRepository interface {
	// Save persists the cart, failing with ErrConcurrentModification when the stored version moved on
	Save(ctx context.Context, cart *domain.ShoppingCart) error

	// FindByID returns nil, nil when the cart does not exist
	FindByID(ctx context.Context, id domain.CartID) (*domain.ShoppingCart, error)

	// FindByCustomerID lists every cart owned by the customer
	FindByCustomerID(ctx context.Context, customerID domain.CustomerID) ([]*domain.ShoppingCart, error)

	// Delete removes the cart; deleting an absent cart is not an error
	Delete(ctx context.Context, id domain.CartID) error
}
