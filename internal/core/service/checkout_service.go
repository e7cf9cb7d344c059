package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// CheckoutService turns an active cart into an order. Re-running checkout
// for the same cart returns the order created the first time.
type CheckoutService struct {
	carts    port.ShoppingCartRepository
	pricing  *OrderPricingService
	creation *OrderCreationService
	writer   *orderWriter
	locker   port.Locker
	logger   *zap.Logger
}

func NewCheckoutService(
	carts port.ShoppingCartRepository,
	orders port.OrderRepository,
	pricing *OrderPricingService,
	creation *OrderCreationService,
	publisher port.EventPublisher,
	locker port.Locker,
	logger *zap.Logger,
) *CheckoutService {
	logger = nopIfNil(logger)
	return &CheckoutService{
		carts:    carts,
		pricing:  pricing,
		creation: creation,
		writer:   &orderWriter{orders: orders, publisher: publisher, locker: locker, logger: logger},
		locker:   locker,
		logger:   logger,
	}
}

func (s *CheckoutService) Checkout(ctx context.Context, cartID domain.CartID, address domain.ShippingAddress) (*domain.Order, error) {
	unlock, err := s.locker.Lock(ctx, cartLockKey(cartID))
	if err != nil {
		return nil, fmt.Errorf("lock cart %s: %w", cartID, err)
	}
	defer unlock()

	cart, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("find cart %s: %w", cartID, err)
	}
	if cart == nil {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}

	existing, err := s.writer.orders.FindByCartID(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("find order of cart %s: %w", cartID, err)
	}

	if cart.IsConverted() {
		if existing == nil {
			return nil, fmt.Errorf("%w: %s", ErrConvertedWithoutOrder, cartID)
		}
		s.logger.Info("checkout replayed for converted cart",
			zap.String("cart_id", cartID.String()),
			zap.String("order_id", existing.ID().String()),
		)
		return existing, nil
	}

	if existing != nil {
		// an earlier run saved the order but did not get to convert the cart
		s.logger.Warn("completing interrupted checkout",
			zap.String("cart_id", cartID.String()),
			zap.String("order_id", existing.ID().String()),
		)
		if err := s.convert(ctx, cart); err != nil {
			return nil, err
		}
		return existing, nil
	}

	if !s.creation.CanConvertCart(cart) {
		return nil, domain.ErrEmptyCart
	}

	priced, err := s.pricing.Price(ctx, cart.Items())
	if err != nil {
		return nil, fmt.Errorf("price cart %s: %w", cartID, err)
	}
	order, err := s.creation.CreateFromCart(cart, priced, address)
	if err != nil {
		return nil, err
	}

	if err := s.writer.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order %s: %w", order.ID(), err)
	}
	// published before the cart save; a retry after a failed cart save
	// reloads the order without its events
	s.writer.publish(ctx, order)
	if err := s.convert(ctx, cart); err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID().String()),
		zap.String("cart_id", cartID.String()),
		zap.String("total", order.TotalAmount().String()),
	)
	return order, nil
}

func (s *CheckoutService) convert(ctx context.Context, cart *domain.ShoppingCart) error {
	if err := cart.MarkAsConverted(); err != nil {
		return err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return fmt.Errorf("save converted cart %s: %w", cart.ID(), err)
	}
	return nil
}
