package domain

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so callers can react without string matching.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvariant         Kind = "invariant"
	KindInvalidTransition Kind = "invalid_transition"
	KindNotFound          Kind = "not_found"
)

// Error is a domain failure. A kind sentinel (empty Message) matches every
// Error of the same kind under errors.Is; specific sentinels match only themselves.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// NewError builds a specific sentinel of the given kind.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain, or "".
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvariant         = &Error{Kind: KindInvariant}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

var (
	ErrCurrencyMismatch = NewError(KindInvariant, "currency mismatch")
	ErrNegativeMoney    = NewError(KindInvariant, "money amount cannot be negative")
	ErrQuantityRange    = NewError(KindValidation, "quantity must be between 1 and 10")
	ErrQuantityLimit    = NewError(KindInvariant, "quantity cannot exceed 10")

	ErrCartConverted    = NewError(KindInvalidTransition, "cart is already converted")
	ErrCartProductLimit = NewError(KindInvariant, "cart cannot hold more than 20 distinct products")
	ErrCartItemNotFound = NewError(KindNotFound, "product is not in the cart")
	ErrEmptyCart        = NewError(KindInvariant, "cart is empty")

	ErrNoOrderItems       = NewError(KindInvariant, "order must have at least one item")
	ErrTotalMismatch      = NewError(KindInvariant, "order total does not match its items")
	ErrEmptyReason        = NewError(KindValidation, "cancellation reason cannot be empty")
	ErrOrderCancelled     = NewError(KindInvalidTransition, "order is cancelled")
	ErrNotAwaitingPayment = NewError(KindInvalidTransition, "order is not awaiting payment")
	ErrNotPaid            = NewError(KindInvalidTransition, "order is not paid")
	ErrCannotBeCancelled  = NewError(KindInvalidTransition, "order cannot be cancelled in its current state")
)

// invalidf reports a malformed value object.
func invalidf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// violationf reports a broken aggregate invariant.
func violationf(format string, args ...any) error {
	return &Error{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}
