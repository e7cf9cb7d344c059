package domain

const (
	MinQuantity = 1
	MaxQuantity = 10
)

// Quantity is a line-item count in [MinQuantity, MaxQuantity].
type Quantity struct {
	value int
}

func NewQuantity(value int) (Quantity, error) {
	if value < MinQuantity || value > MaxQuantity {
		return Quantity{}, ErrQuantityRange
	}
	return Quantity{value: value}, nil
}

// MustQuantity is NewQuantity for literals known to be valid.
func MustQuantity(value int) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

// Add returns the sum, failing when it exceeds MaxQuantity.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	sum := q.value + other.value
	if sum > MaxQuantity {
		return Quantity{}, ErrQuantityLimit
	}
	return Quantity{value: sum}, nil
}

func (q Quantity) Int() int {
	return q.value
}

func (q Quantity) Equals(other Quantity) bool {
	return q.value == other.value
}
