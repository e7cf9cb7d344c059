package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// CartService runs cart use cases, one locked load-mutate-save per call.
type CartService struct {
	carts  port.ShoppingCartRepository
	locker port.Locker
	logger *zap.Logger
}

func NewCartService(carts port.ShoppingCartRepository, locker port.Locker, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, locker: locker, logger: nopIfNil(logger)}
}

func (s *CartService) CreateCart(ctx context.Context, customerID domain.CustomerID) (*domain.ShoppingCart, error) {
	cart, err := domain.NewShoppingCart(domain.NewCartID(), customerID)
	if err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	s.logger.Info("cart created",
		zap.String("cart_id", cart.ID().String()),
		zap.String("customer_id", customerID.String()),
	)
	return cart, nil
}

func (s *CartService) GetCart(ctx context.Context, id domain.CartID) (*domain.ShoppingCart, error) {
	cart, err := s.carts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find cart %s: %w", id, err)
	}
	if cart == nil {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, id)
	}
	return cart, nil
}

func (s *CartService) ListCustomerCarts(ctx context.Context, customerID domain.CustomerID) ([]*domain.ShoppingCart, error) {
	carts, err := s.carts.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find carts of %s: %w", customerID, err)
	}
	return carts, nil
}

func (s *CartService) AddItem(ctx context.Context, id domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, id, func(cart *domain.ShoppingCart) error {
		return cart.AddItem(productID, quantity)
	})
}

func (s *CartService) UpdateItemQuantity(ctx context.Context, id domain.CartID, productID domain.ProductID, quantity domain.Quantity) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, id, func(cart *domain.ShoppingCart) error {
		return cart.UpdateItemQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, id domain.CartID, productID domain.ProductID) (*domain.ShoppingCart, error) {
	return s.mutate(ctx, id, func(cart *domain.ShoppingCart) error {
		return cart.RemoveItem(productID)
	})
}

// DeleteCart removes an active cart. Converted carts stay as the record of their checkout.
func (s *CartService) DeleteCart(ctx context.Context, id domain.CartID) error {
	unlock, err := s.locker.Lock(ctx, cartLockKey(id))
	if err != nil {
		return fmt.Errorf("lock cart %s: %w", id, err)
	}
	defer unlock()

	cart, err := s.GetCart(ctx, id)
	if err != nil {
		return err
	}
	if cart.IsConverted() {
		return domain.ErrCartConverted
	}
	if err := s.carts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete cart %s: %w", id, err)
	}
	return nil
}

func (s *CartService) mutate(ctx context.Context, id domain.CartID, fn func(*domain.ShoppingCart) error) (*domain.ShoppingCart, error) {
	unlock, err := s.locker.Lock(ctx, cartLockKey(id))
	if err != nil {
		return nil, fmt.Errorf("lock cart %s: %w", id, err)
	}
	defer unlock()

	cart, err := s.GetCart(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart %s: %w", id, err)
	}
	return cart, nil
}
