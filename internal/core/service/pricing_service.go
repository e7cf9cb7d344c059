package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// PricedOrder is the priced form of a cart, ready for Order creation.
type PricedOrder struct {
	Items              []domain.OrderItem
	OrderLevelDiscount domain.Money
	OrderTotal         domain.Money
}

// OrderPricingService combines catalog snapshots and pricing quotes into order lines.
type OrderPricingService struct {
	catalog port.CatalogGateway
	pricing port.PricingGateway
}

func NewOrderPricingService(catalog port.CatalogGateway, pricing port.PricingGateway) *OrderPricingService {
	return &OrderPricingService{catalog: catalog, pricing: pricing}
}

// Price resolves every cart line against the catalog and the pricing
// gateway. Any lookup failure aborts the whole pricing.
func (s *OrderPricingService) Price(ctx context.Context, cartItems []domain.CartItem) (PricedOrder, error) {
	lines := make([]port.PricingLine, len(cartItems))
	for i, item := range cartItems {
		lines[i] = port.PricingLine{ProductID: item.ProductID(), Quantity: item.Quantity()}
	}

	var quote port.PriceQuote
	snapshots := make([]domain.ProductSnapshot, len(cartItems))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.pricing.CalculatePricing(gctx, lines)
		if err != nil {
			return fmt.Errorf("calculate pricing: %w", err)
		}
		quote = q
		return nil
	})
	for i, item := range cartItems {
		g.Go(func() error {
			data, err := s.catalog.GetProductData(gctx, item.ProductID())
			if err != nil {
				return fmt.Errorf("get product %s: %w", item.ProductID(), err)
			}
			snapshot, err := domain.NewProductSnapshot(data.Name, data.Description, data.SKU)
			if err != nil {
				return fmt.Errorf("snapshot product %s: %w", item.ProductID(), err)
			}
			snapshots[i] = snapshot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PricedOrder{}, err
	}

	return assemble(cartItems, snapshots, quote)
}

func assemble(cartItems []domain.CartItem, snapshots []domain.ProductSnapshot, quote port.PriceQuote) (PricedOrder, error) {
	if len(quote.Items) != len(cartItems) {
		return PricedOrder{}, fmt.Errorf("%w: %d priced lines for %d cart items", ErrPricingInconsistent, len(quote.Items), len(cartItems))
	}
	priced := make(map[domain.ProductID]port.PricedLine, len(quote.Items))
	for _, line := range quote.Items {
		priced[line.ProductID] = line
	}

	items := make([]domain.OrderItem, 0, len(cartItems))
	subtotal := domain.Zero(quote.OrderTotal.Currency())
	for i, cartItem := range cartItems {
		line, ok := priced[cartItem.ProductID()]
		if !ok {
			return PricedOrder{}, fmt.Errorf("%w: no price for %s", ErrPricingInconsistent, cartItem.ProductID())
		}
		item, err := domain.NewOrderItem(cartItem.ProductID(), snapshots[i], cartItem.Quantity(), line.UnitPrice, line.ItemDiscount)
		if err != nil {
			return PricedOrder{}, err
		}
		if !item.LineTotal().Equals(line.LineTotal) {
			return PricedOrder{}, fmt.Errorf("%w: line total of %s is %s, expected %s",
				ErrPricingInconsistent, cartItem.ProductID(), line.LineTotal, item.LineTotal())
		}
		if subtotal, err = subtotal.Add(item.LineTotal()); err != nil {
			return PricedOrder{}, err
		}
		items = append(items, item)
	}

	total, err := subtotal.Subtract(quote.OrderLevelDiscount)
	if err != nil {
		return PricedOrder{}, fmt.Errorf("apply order discount: %w", err)
	}
	if !total.Equals(quote.OrderTotal) {
		return PricedOrder{}, fmt.Errorf("%w: order total is %s, expected %s", ErrPricingInconsistent, quote.OrderTotal, total)
	}

	return PricedOrder{Items: items, OrderLevelDiscount: quote.OrderLevelDiscount, OrderTotal: total}, nil
}
