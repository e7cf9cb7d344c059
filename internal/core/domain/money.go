package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyScale = 2

// Currency is an upper-case three letter code such as USD.
type Currency string

func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 || !isUpperASCII(c) {
		return "", invalidf("invalid currency code %q", code)
	}
	return Currency(c), nil
}

func (c Currency) String() string {
	return string(c)
}

// Money is a non-negative amount in a single currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	c, err := ParseCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeMoney
	}
	return Money{amount: amount.Round(moneyScale), currency: c}, nil
}

// ParseMoney reads a decimal string such as "19.99".
func ParseMoney(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, invalidf("invalid money amount %q", amount)
	}
	return NewMoney(d, currency)
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(amount, currency string) Money {
	m, err := ParseMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal {
	return m.amount
}

func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrNegativeMoney, m, other)
	}
	return Money{amount: result, currency: m.currency}, nil
}

func (m Money) Multiply(q Quantity) Money {
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(q.Int()))), currency: m.currency}
}

// String renders "12.50 USD".
func (m Money) String() string {
	return m.amount.StringFixed(moneyScale) + " " + string(m.currency)
}
