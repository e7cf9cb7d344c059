package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCartID_NormalizesCase(t *testing.T) {
	id, err := ParseCartID("  6F9619FF-8B86-D011-B42D-00C04FC964FF ")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", id.String())

	same, err := ParseCartID("6f9619ff-8b86-d011-b42d-00c04fc964ff")
	require.NoError(t, err)
	assert.True(t, id.Equals(same))
	assert.Equal(t, id, same)
}

func TestParseUUIDIdentifiers_RejectGarbage(t *testing.T) {
	_, err := ParseOrderID("not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "order id")

	_, err = ParseEventID("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseNameIdentifiers(t *testing.T) {
	id, err := ParseProductID("  sku-1 ")
	require.NoError(t, err)
	assert.Equal(t, "sku-1", id.String())

	_, err = ParseCustomerID("   ")
	assert.ErrorIs(t, err, ErrValidation)

	long := make([]byte, maxNameIDLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = ParsePaymentID(string(long))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIdentifiers_SatisfyIdentifier(t *testing.T) {
	ids := []Identifier{NewCartID(), NewOrderID(), NewEventID(), ProductID{}, CustomerID{}}
	assert.False(t, ids[0].IsZero())
	assert.True(t, ids[3].IsZero())
	assert.NotEqual(t, NewOrderID(), NewOrderID())
}
