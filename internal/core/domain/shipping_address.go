package domain

import (
	"strings"
	"unicode/utf8"
)

// AddressFields is the unvalidated input for NewShippingAddress.
type AddressFields struct {
	Recipient  string
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// ShippingAddress is a validated postal address copied verbatim onto an order.
type ShippingAddress struct {
	fields AddressFields
}

func NewShippingAddress(in AddressFields) (ShippingAddress, error) {
	f := AddressFields{
		Recipient:  strings.TrimSpace(in.Recipient),
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
	}

	checks := []struct {
		field    string
		value    string
		max      int
		optional bool
	}{
		{"recipient", f.Recipient, 100, false},
		{"street", f.Street, 200, false},
		{"city", f.City, 100, false},
		{"state", f.State, 100, true},
		{"postal code", f.PostalCode, 20, false},
	}
	for _, c := range checks {
		if c.value == "" && !c.optional {
			return ShippingAddress{}, invalidf("shipping address %s cannot be empty", c.field)
		}
		if utf8.RuneCountInString(c.value) > c.max {
			return ShippingAddress{}, invalidf("shipping address %s exceeds %d characters", c.field, c.max)
		}
	}

	if len(f.Country) != 2 || !isUpperASCII(f.Country) {
		return ShippingAddress{}, invalidf("shipping address country must be a two letter code")
	}

	return ShippingAddress{fields: f}, nil
}

func isUpperASCII(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Fields returns a copy of the address parts.
func (a ShippingAddress) Fields() AddressFields { return a.fields }

func (a ShippingAddress) Recipient() string  { return a.fields.Recipient }
func (a ShippingAddress) Street() string     { return a.fields.Street }
func (a ShippingAddress) City() string       { return a.fields.City }
func (a ShippingAddress) State() string      { return a.fields.State }
func (a ShippingAddress) PostalCode() string { return a.fields.PostalCode }
func (a ShippingAddress) Country() string    { return a.fields.Country }

func (a ShippingAddress) IsZero() bool { return a.fields == AddressFields{} }
