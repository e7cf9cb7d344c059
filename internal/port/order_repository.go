package port

import (
	"context"
	"errors"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

// ErrConcurrentModification is returned by repositories when a save is based on a stale version.
var ErrConcurrentModification = errors.New("concurrent modification")

type OrderRepository interface {
	// Save inserts a new order or updates an existing one with a version check
	Save(ctx context.Context, order *domain.Order) error

	// FindByID returns nil, nil when the order does not exist
	FindByID(ctx context.Context, id domain.OrderID) (*domain.Order, error)

	// FindByCartID returns the order created from the cart, or nil, nil
	FindByCartID(ctx context.Context, cartID domain.CartID) (*domain.Order, error)
}
