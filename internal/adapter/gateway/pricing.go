package gateway

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

// PricingRules are the discounts applied by StaticPricing. A zero percent
// disables the rule. Currency is the currency of the quote for an empty
// line list.
type PricingRules struct {
	Currency             string
	BulkQuantity         int
	BulkDiscountPercent  decimal.Decimal
	OrderThreshold       decimal.Decimal
	OrderDiscountPercent decimal.Decimal
}

func DefaultPricingRules() PricingRules {
	return PricingRules{
		Currency:             "USD",
		BulkQuantity:         5,
		BulkDiscountPercent:  decimal.NewFromInt(10),
		OrderThreshold:       decimal.NewFromInt(200),
		OrderDiscountPercent: decimal.NewFromInt(5),
	}
}

// StaticPricing prices lines from a fixed price table. Lines of at least
// BulkQuantity units get a percentage item discount, and subtotals of at
// least OrderThreshold get a percentage order-level discount.
type StaticPricing struct {
	prices   map[domain.ProductID]domain.Money
	rules    PricingRules
	currency domain.Currency
}

func NewStaticPricing(products []Product, rules PricingRules) (*StaticPricing, error) {
	currency, err := domain.ParseCurrency(rules.Currency)
	if err != nil {
		return nil, fmt.Errorf("pricing currency: %w", err)
	}
	p := &StaticPricing{
		prices:   make(map[domain.ProductID]domain.Money, len(products)),
		rules:    rules,
		currency: currency,
	}
	for _, product := range products {
		id, err := domain.ParseProductID(product.ID)
		if err != nil {
			return nil, fmt.Errorf("price product %q: %w", product.ID, err)
		}
		price, err := domain.ParseMoney(product.Price, product.Currency)
		if err != nil {
			return nil, fmt.Errorf("price product %q: %w", product.ID, err)
		}
		p.prices[id] = price
	}
	return p, nil
}

func (p *StaticPricing) CalculatePricing(ctx context.Context, lines []port.PricingLine) (port.PriceQuote, error) {
	if err := ctx.Err(); err != nil {
		return port.PriceQuote{}, err
	}
	if len(lines) == 0 {
		return port.PriceQuote{
			OrderLevelDiscount: domain.Zero(p.currency),
			OrderTotal:         domain.Zero(p.currency),
		}, nil
	}

	quote := port.PriceQuote{Items: make([]port.PricedLine, 0, len(lines))}
	var subtotal domain.Money
	for i, line := range lines {
		unitPrice, ok := p.prices[line.ProductID]
		if !ok {
			return port.PriceQuote{}, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductID)
		}
		if i == 0 {
			subtotal = domain.Zero(unitPrice.Currency())
		}

		gross := unitPrice.Multiply(line.Quantity)
		discount := domain.Zero(unitPrice.Currency())
		if p.rules.BulkDiscountPercent.IsPositive() && line.Quantity.Int() >= p.rules.BulkQuantity {
			var err error
			if discount, err = percentOf(gross, p.rules.BulkDiscountPercent); err != nil {
				return port.PriceQuote{}, err
			}
		}
		lineTotal, err := gross.Subtract(discount)
		if err != nil {
			return port.PriceQuote{}, err
		}
		if subtotal, err = subtotal.Add(lineTotal); err != nil {
			return port.PriceQuote{}, fmt.Errorf("price %s: %w", line.ProductID, err)
		}

		quote.Items = append(quote.Items, port.PricedLine{
			ProductID:    line.ProductID,
			UnitPrice:    unitPrice,
			ItemDiscount: discount,
			LineTotal:    lineTotal,
		})
	}

	quote.OrderLevelDiscount = domain.Zero(subtotal.Currency())
	if p.rules.OrderDiscountPercent.IsPositive() && subtotal.Amount().GreaterThanOrEqual(p.rules.OrderThreshold) {
		var err error
		if quote.OrderLevelDiscount, err = percentOf(subtotal, p.rules.OrderDiscountPercent); err != nil {
			return port.PriceQuote{}, err
		}
	}
	total, err := subtotal.Subtract(quote.OrderLevelDiscount)
	if err != nil {
		return port.PriceQuote{}, err
	}
	quote.OrderTotal = total
	return quote, nil
}

func percentOf(m domain.Money, percent decimal.Decimal) (domain.Money, error) {
	return domain.NewMoney(m.Amount().Mul(percent).Div(decimal.NewFromInt(100)), m.Currency().String())
}
