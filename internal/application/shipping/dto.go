package shipping

import (
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/google/uuid"
)

// GetRatesRequest is the input of QuoteService.GetRates
type GetRatesRequest struct {
	Items       []shipping.CartItem
	Destination shipping.Destination
}

// QuoteResult is the outcome of a successful rate request
type QuoteResult struct {
	QuoteID       uuid.UUID                 `json:"quoteId"`
	ResolvedAt    time.Time                 `json:"resolvedAt"`
	Quotes        []shipping.RateQuote      `json:"quotes"`
	PackagePlan   shipping.PackagePlan      `json:"packagePlan"`
	CarrierErrors []shipping.CarrierFailure `json:"carrierErrors"`
	// Skipped lists carriers the router did not query and why
	Skipped []shipping.SkippedCarrier `json:"skipped,omitempty"`
}

// PlanPreview describes how an order would be packed and routed without
// contacting any carrier
type PlanPreview struct {
	PackagePlan shipping.PackagePlan        `json:"packagePlan"`
	Selections  []shipping.CarrierSelection `json:"selections"`
	Skipped     []shipping.SkippedCarrier   `json:"skipped,omitempty"`
	TotalWeight float64                     `json:"totalWeightLb"`
}
