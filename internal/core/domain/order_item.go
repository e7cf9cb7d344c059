package domain

import "fmt"

// OrderItem is an immutable priced line of an order.
type OrderItem struct {
	productID    ProductID
	product      ProductSnapshot
	quantity     Quantity
	unitPrice    Money
	itemDiscount Money
	lineTotal    Money
}

func NewOrderItem(productID ProductID, product ProductSnapshot, quantity Quantity, unitPrice, itemDiscount Money) (OrderItem, error) {
	if productID.IsZero() {
		return OrderItem{}, invalidf("order item product id is required")
	}
	if unitPrice.Currency() != itemDiscount.Currency() {
		return OrderItem{}, fmt.Errorf("order item %s: %w", productID, ErrCurrencyMismatch)
	}
	lineTotal, err := unitPrice.Multiply(quantity).Subtract(itemDiscount)
	if err != nil {
		return OrderItem{}, fmt.Errorf("order item %s: discount exceeds line price: %w", productID, err)
	}
	return OrderItem{
		productID:    productID,
		product:      product,
		quantity:     quantity,
		unitPrice:    unitPrice,
		itemDiscount: itemDiscount,
		lineTotal:    lineTotal,
	}, nil
}

func (i OrderItem) ProductID() ProductID     { return i.productID }
func (i OrderItem) Product() ProductSnapshot { return i.product }
func (i OrderItem) Quantity() Quantity       { return i.quantity }
func (i OrderItem) UnitPrice() Money         { return i.unitPrice }
func (i OrderItem) ItemDiscount() Money      { return i.itemDiscount }

// LineTotal is unitPrice x quantity - itemDiscount.
func (i OrderItem) LineTotal() Money { return i.lineTotal }
