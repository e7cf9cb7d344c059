package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	maxProductNameLength        = 200
	maxProductDescriptionLength = 1000
	maxSKULength                = 50
)

// ProductSnapshot freezes catalog data at pricing time so later catalog
// edits do not rewrite historical orders.
type ProductSnapshot struct {
	name        string
	description string
	sku         string
}

func NewProductSnapshot(name, description, sku string) (ProductSnapshot, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	sku = strings.TrimSpace(sku)

	if name == "" {
		return ProductSnapshot{}, invalidf("product name cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxProductNameLength {
		return ProductSnapshot{}, invalidf("product name exceeds %d characters", maxProductNameLength)
	}
	if utf8.RuneCountInString(description) > maxProductDescriptionLength {
		return ProductSnapshot{}, invalidf("product description exceeds %d characters", maxProductDescriptionLength)
	}
	if sku == "" {
		return ProductSnapshot{}, invalidf("product sku cannot be empty")
	}
	if utf8.RuneCountInString(sku) > maxSKULength {
		return ProductSnapshot{}, invalidf("product sku exceeds %d characters", maxSKULength)
	}

	return ProductSnapshot{name: name, description: description, sku: sku}, nil
}

func (p ProductSnapshot) Name() string        { return p.name }
func (p ProductSnapshot) Description() string { return p.description }
func (p ProductSnapshot) SKU() string         { return p.sku }
