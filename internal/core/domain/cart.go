package domain

import (
	"fmt"
	"time"
)

// MaxCartProducts is the number of distinct products a cart may hold.
const MaxCartProducts = 20

type ConversionStatus string

const (
	CartActive    ConversionStatus = "ACTIVE"
	CartConverted ConversionStatus = "CONVERTED"
)

func (s ConversionStatus) valid() bool {
	return s == CartActive || s == CartConverted
}

// CartItem is a cart line. It has no identity outside its cart.
type CartItem struct {
	productID ProductID
	quantity  Quantity
}

func (i CartItem) ProductID() ProductID { return i.productID }
func (i CartItem) Quantity() Quantity   { return i.quantity }

// ShoppingCart is the aggregate root for cart mutation.
type ShoppingCart struct {
	id         CartID
	customerID CustomerID
	items      map[ProductID]CartItem
	order      []ProductID // insertion order of items
	status     ConversionStatus
	version    int
	createdAt  time.Time
	updatedAt  time.Time
}

func NewShoppingCart(id CartID, customerID CustomerID) (*ShoppingCart, error) {
	if id.IsZero() {
		return nil, invalidf("cart id is required")
	}
	if customerID.IsZero() {
		return nil, invalidf("customer id is required")
	}
	now := time.Now().UTC()
	return &ShoppingCart{
		id:         id,
		customerID: customerID,
		items:      make(map[ProductID]CartItem),
		status:     CartActive,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

func (c *ShoppingCart) ID() CartID               { return c.id }
func (c *ShoppingCart) CustomerID() CustomerID   { return c.customerID }
func (c *ShoppingCart) Status() ConversionStatus { return c.status }
func (c *ShoppingCart) Version() int             { return c.version }
func (c *ShoppingCart) CreatedAt() time.Time     { return c.createdAt }
func (c *ShoppingCart) UpdatedAt() time.Time     { return c.updatedAt }
func (c *ShoppingCart) ItemCount() int           { return len(c.items) }
func (c *ShoppingCart) IsEmpty() bool            { return len(c.items) == 0 }
func (c *ShoppingCart) IsConverted() bool        { return c.status == CartConverted }
func (c *ShoppingCart) SetVersion(version int)   { c.version = version }

// Items returns a copy of the lines in the order they were first added.
func (c *ShoppingCart) Items() []CartItem {
	items := make([]CartItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, c.items[id])
	}
	return items
}

// Item looks up a single line.
func (c *ShoppingCart) Item(productID ProductID) (CartItem, bool) {
	item, ok := c.items[productID]
	return item, ok
}

// AddItem inserts a line or, when the product is already present, adds to its quantity.
func (c *ShoppingCart) AddItem(productID ProductID, quantity Quantity) error {
	if c.IsConverted() {
		return ErrCartConverted
	}
	if productID.IsZero() {
		return invalidf("product id is required")
	}

	if existing, ok := c.items[productID]; ok {
		sum, err := existing.quantity.Add(quantity)
		if err != nil {
			return fmt.Errorf("add %s: %w", productID, err)
		}
		c.items[productID] = CartItem{productID: productID, quantity: sum}
		c.touch()
		return nil
	}

	if len(c.items) >= MaxCartProducts {
		return ErrCartProductLimit
	}
	c.items[productID] = CartItem{productID: productID, quantity: quantity}
	c.order = append(c.order, productID)
	c.touch()
	return nil
}

// UpdateItemQuantity replaces the quantity of an existing line.
func (c *ShoppingCart) UpdateItemQuantity(productID ProductID, quantity Quantity) error {
	if c.IsConverted() {
		return ErrCartConverted
	}
	if _, ok := c.items[productID]; !ok {
		return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}
	c.items[productID] = CartItem{productID: productID, quantity: quantity}
	c.touch()
	return nil
}

func (c *ShoppingCart) RemoveItem(productID ProductID) error {
	if c.IsConverted() {
		return ErrCartConverted
	}
	if _, ok := c.items[productID]; !ok {
		return fmt.Errorf("%w: %s", ErrCartItemNotFound, productID)
	}
	delete(c.items, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.touch()
	return nil
}

// MarkAsConverted makes the cart read-only. Re-marking a converted cart is a no-op.
func (c *ShoppingCart) MarkAsConverted() error {
	if c.IsConverted() {
		return nil
	}
	if c.IsEmpty() {
		return ErrEmptyCart
	}
	c.status = CartConverted
	c.touch()
	return nil
}

func (c *ShoppingCart) touch() {
	c.updatedAt = time.Now().UTC()
}

// CartSnapshot is the persisted form of a ShoppingCart.
type CartSnapshot struct {
	ID         string
	CustomerID string
	Items      []CartItemSnapshot
	Status     string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type CartItemSnapshot struct {
	ProductID string
	Quantity  int
}

func (c *ShoppingCart) Snapshot() CartSnapshot {
	items := make([]CartItemSnapshot, 0, len(c.order))
	for _, item := range c.Items() {
		items = append(items, CartItemSnapshot{
			ProductID: item.productID.String(),
			Quantity:  item.quantity.Int(),
		})
	}
	return CartSnapshot{
		ID:         c.id.String(),
		CustomerID: c.customerID.String(),
		Items:      items,
		Status:     string(c.status),
		Version:    c.version,
		CreatedAt:  c.createdAt,
		UpdatedAt:  c.updatedAt,
	}
}

// RebuildShoppingCart restores a cart from storage, re-checking every invariant.
func RebuildShoppingCart(s CartSnapshot) (*ShoppingCart, error) {
	id, err := ParseCartID(s.ID)
	if err != nil {
		return nil, err
	}
	customerID, err := ParseCustomerID(s.CustomerID)
	if err != nil {
		return nil, err
	}
	status := ConversionStatus(s.Status)
	if !status.valid() {
		return nil, violationf("invalid cart status %q", s.Status)
	}
	if len(s.Items) > MaxCartProducts {
		return nil, ErrCartProductLimit
	}
	if status == CartConverted && len(s.Items) == 0 {
		return nil, violationf("converted cart %s has no items", s.ID)
	}

	cart := &ShoppingCart{
		id:         id,
		customerID: customerID,
		items:      make(map[ProductID]CartItem, len(s.Items)),
		order:      make([]ProductID, 0, len(s.Items)),
		status:     status,
		version:    s.Version,
		createdAt:  s.CreatedAt,
		updatedAt:  s.UpdatedAt,
	}
	for _, is := range s.Items {
		productID, err := ParseProductID(is.ProductID)
		if err != nil {
			return nil, err
		}
		quantity, err := NewQuantity(is.Quantity)
		if err != nil {
			return nil, err
		}
		if _, dup := cart.items[productID]; dup {
			return nil, violationf("duplicate product %s in cart %s", productID, s.ID)
		}
		cart.items[productID] = CartItem{productID: productID, quantity: quantity}
		cart.order = append(cart.order, productID)
	}
	return cart, nil
}
