package middleware

import (
	"testing"

	"github.com/forcedowels/backend/internal/interfaces/http/dto"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

func TestValidationDetails(t *testing.T) {
	v := newValidator()

	err := v.Struct(dto.RatesRequest{
		Destination: dto.DestinationRequest{Country: "US"},
		Items: []dto.CartItemRequest{
			{Kind: "bulk", Quantity: 5000},
			{Kind: "crate", Quantity: 1},
		},
	})
	require.Error(t, err)

	details := ValidationDetails(err)
	fields := map[string]string{}
	for _, d := range details {
		fields[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", fields["destination.postalCode"])
	assert.Equal(t, "Must be one of: bulk kit test", fields["items[1].kind"])
	assert.Len(t, details, 2)
}

func TestValidationDetails_EmptyItems(t *testing.T) {
	err := newValidator().Struct(dto.PackagesRequest{Items: []dto.CartItemRequest{}})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 1)
	assert.Equal(t, "items", details[0].Field)
	assert.Equal(t, "Must contain at least 1 element(s)", details[0].Message)
}

func TestItemKindTag(t *testing.T) {
	v := newValidator()
	for _, kind := range []string{"bulk", "Kit", " test "} {
		assert.NoError(t, v.Var(kind, "itemkind"), kind)
	}
	assert.Error(t, v.Var("pallet", "itemkind"))
}

func TestValidationDetails_NotValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}

func TestSetupValidator(t *testing.T) {
	assert.NoError(t, SetupValidator())
}
