package port

import (
	"context"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
)

type ProductData struct {
	Name        string
	Description string
	SKU         string
}

type CatalogGateway interface {
	// GetProductData fails for unknown products
	GetProductData(ctx context.Context, productID domain.ProductID) (ProductData, error)
}

type PricingLine struct {
	ProductID domain.ProductID
	Quantity  domain.Quantity
}

type PricedLine struct {
	ProductID    domain.ProductID
	UnitPrice    domain.Money
	ItemDiscount domain.Money
	LineTotal    domain.Money
}

// PriceQuote holds lineTotal = unitPrice*qty - itemDiscount and
// orderTotal = sum(lineTotal) - orderLevelDiscount, in one currency.
type PriceQuote struct {
	Items              []PricedLine
	OrderLevelDiscount domain.Money
	OrderTotal         domain.Money
}

type PricingGateway interface {
	CalculatePricing(ctx context.Context, lines []PricingLine) (PriceQuote, error)
}
