package dto

import (
	"strings"

	"github.com/forcedowels/backend/internal/domain/shipping"
)

// DestinationRequest is the ship-to address of a rate request
type DestinationRequest struct {
	Country    string `json:"country" binding:"required,max=2"`
	State      string `json:"state" binding:"max=64"`
	City       string `json:"city" binding:"max=128"`
	PostalCode string `json:"postalCode" binding:"required,max=16"`
	Street     string `json:"street" binding:"max=256"`
}

// CartItemRequest is one order line. Non-positive quantities are accepted
// and contribute nothing to the package plan.
type CartItemRequest struct {
	Kind     string `json:"kind" binding:"required,itemkind"`
	Quantity int    `json:"quantity"`
}

// RatesRequest is the body of POST /shipping/rates
type RatesRequest struct {
	Destination DestinationRequest `json:"destination"`
	Items       []CartItemRequest  `json:"items" binding:"required,min=1,max=50,dive"`
}

// PackagesRequest is the body of POST /shipping/packages
type PackagesRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
}

// ToDomain converts the address, upper-casing the country code
func (d DestinationRequest) ToDomain() shipping.Destination {
	return shipping.Destination{
		Country:    strings.ToUpper(strings.TrimSpace(d.Country)),
		State:      strings.TrimSpace(d.State),
		City:       strings.TrimSpace(d.City),
		PostalCode: strings.TrimSpace(d.PostalCode),
		Street:     strings.TrimSpace(d.Street),
	}
}

// CartItems converts request lines into domain cart items
func CartItems(items []CartItemRequest) ([]shipping.CartItem, error) {
	out := make([]shipping.CartItem, 0, len(items))
	for _, item := range items {
		kind, err := shipping.ParseItemKind(item.Kind)
		if err != nil {
			return nil, err
		}
		out = append(out, shipping.CartItem{Kind: kind, Quantity: item.Quantity})
	}
	return out, nil
}
