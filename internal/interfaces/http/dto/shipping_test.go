package dto

import (
	"testing"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationRequest_ToDomain(t *testing.T) {
	dest := DestinationRequest{
		Country:    " us ",
		State:      "OR",
		City:       " Portland",
		PostalCode: "97201 ",
	}.ToDomain()

	assert.Equal(t, shipping.Destination{
		Country:    "US",
		State:      "OR",
		City:       "Portland",
		PostalCode: "97201",
	}, dest)
}

func TestCartItems(t *testing.T) {
	items, err := CartItems([]CartItemRequest{
		{Kind: "Bulk", Quantity: 15000},
		{Kind: " kit", Quantity: 3},
		{Kind: "test", Quantity: -1},
	})
	require.NoError(t, err)
	assert.Equal(t, []shipping.CartItem{
		{Kind: shipping.ItemKindBulk, Quantity: 15000},
		{Kind: shipping.ItemKindKit, Quantity: 3},
		{Kind: shipping.ItemKindTest, Quantity: -1},
	}, items)

	_, err = CartItems([]CartItemRequest{{Kind: "crate", Quantity: 1}})
	var verr *shipping.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kind", verr.Field)
}
