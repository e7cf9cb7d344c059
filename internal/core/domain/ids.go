package domain

import (
	"strings"

	"github.com/google/uuid"
)

const maxNameIDLength = 100

// Identifier is implemented by every identifier value type.
type Identifier interface {
	String() string
	IsZero() bool
}

// Kind markers keep identifiers of different aggregates from being mixed up.
type (
	cartIDKind        struct{}
	orderIDKind       struct{}
	eventIDKind       struct{}
	customerIDKind    struct{}
	productIDKind     struct{}
	paymentIDKind     struct{}
	reservationIDKind struct{}
)

type kindLabel interface {
	label() string
}

func (cartIDKind) label() string        { return "cart id" }
func (orderIDKind) label() string       { return "order id" }
func (eventIDKind) label() string       { return "event id" }
func (customerIDKind) label() string    { return "customer id" }
func (productIDKind) label() string     { return "product id" }
func (paymentIDKind) label() string     { return "payment id" }
func (reservationIDKind) label() string { return "reservation id" }

// UUID is an identifier backed by a lower-case canonical UUID string.
type UUID[K kindLabel] struct {
	value string
}

func newUUID[K kindLabel]() UUID[K] {
	return UUID[K]{value: uuid.NewString()}
}

func parseUUID[K kindLabel](s string) (UUID[K], error) {
	var k K
	u, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return UUID[K]{}, invalidf("invalid %s %q: must be a UUID", k.label(), s)
	}
	return UUID[K]{value: u.String()}, nil
}

func (id UUID[K]) String() string {
	return id.value
}

func (id UUID[K]) IsZero() bool {
	return id.value == ""
}

func (id UUID[K]) Equals(other UUID[K]) bool {
	return id.value == other.value
}

// Name is an identifier backed by a trimmed, non-empty string.
type Name[K kindLabel] struct {
	value string
}

func parseName[K kindLabel](s string) (Name[K], error) {
	var k K
	v := strings.TrimSpace(s)
	if v == "" {
		return Name[K]{}, invalidf("%s cannot be empty", k.label())
	}
	if len(v) > maxNameIDLength {
		return Name[K]{}, invalidf("%s exceeds %d characters", k.label(), maxNameIDLength)
	}
	return Name[K]{value: v}, nil
}

func (id Name[K]) String() string {
	return id.value
}

func (id Name[K]) IsZero() bool {
	return id.value == ""
}

func (id Name[K]) Equals(other Name[K]) bool {
	return id.value == other.value
}

type (
	CartID        = UUID[cartIDKind]
	OrderID       = UUID[orderIDKind]
	EventID       = UUID[eventIDKind]
	CustomerID    = Name[customerIDKind]
	ProductID     = Name[productIDKind]
	PaymentID     = Name[paymentIDKind]
	ReservationID = Name[reservationIDKind]
)

func NewCartID() CartID   { return newUUID[cartIDKind]() }
func NewOrderID() OrderID { return newUUID[orderIDKind]() }
func NewEventID() EventID { return newUUID[eventIDKind]() }

func ParseCartID(s string) (CartID, error)   { return parseUUID[cartIDKind](s) }
func ParseOrderID(s string) (OrderID, error) { return parseUUID[orderIDKind](s) }
func ParseEventID(s string) (EventID, error) { return parseUUID[eventIDKind](s) }

func ParseCustomerID(s string) (CustomerID, error)       { return parseName[customerIDKind](s) }
func ParseProductID(s string) (ProductID, error)         { return parseName[productIDKind](s) }
func ParsePaymentID(s string) (PaymentID, error)         { return parseName[paymentIDKind](s) }
func ParseReservationID(s string) (ReservationID, error) { return parseName[reservationIDKind](s) }
