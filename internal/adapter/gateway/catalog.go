package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/rl1809/purchase-lifecycle/internal/core/domain"
	"github.com/rl1809/purchase-lifecycle/internal/port"
)

var ErrUnknownProduct = errors.New("unknown product")

// Product is one entry of the static product table backing the local
// catalog and pricing gateways.
type Product struct {
	ID          string
	Name        string
	Description string
	SKU         string
	Price       string
	Currency    string
}

// DefaultProducts is the demo assortment served when no external catalog is
// configured.
func DefaultProducts() []Product {
	return []Product{
		{ID: "sku-kettle", Name: "Electric Kettle", Description: "1.7l steel kettle", SKU: "KT-100", Price: "39.90", Currency: "USD"},
		{ID: "sku-mug", Name: "Ceramic Mug", Description: "350ml stoneware mug", SKU: "MG-350", Price: "8.50", Currency: "USD"},
		{ID: "sku-grinder", Name: "Coffee Grinder", Description: "Conical burr grinder", SKU: "GR-200", Price: "129.00", Currency: "USD"},
		{ID: "sku-beans", Name: "Espresso Beans", Description: "1kg medium roast", SKU: "BN-1000", Price: "24.00", Currency: "USD"},
	}
}

type StaticCatalog struct {
	products map[domain.ProductID]port.ProductData
}

func NewStaticCatalog(products []Product) (*StaticCatalog, error) {
	c := &StaticCatalog{products: make(map[domain.ProductID]port.ProductData, len(products))}
	for _, p := range products {
		id, err := domain.ParseProductID(p.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog product %q: %w", p.ID, err)
		}
		c.products[id] = port.ProductData{Name: p.Name, Description: p.Description, SKU: p.SKU}
	}
	return c, nil
}

func (c *StaticCatalog) GetProductData(ctx context.Context, productID domain.ProductID) (port.ProductData, error) {
	if err := ctx.Err(); err != nil {
		return port.ProductData{}, err
	}
	data, ok := c.products[productID]
	if !ok {
		return port.ProductData{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}
	return data, nil
}
