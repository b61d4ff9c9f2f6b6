package carrier

import "encoding/json"

const (
	tqlSubscriptionHeader = "Ocp-Apim-Subscription-Key"
	tqlUnitTypePallet     = "Pallet"
	tqlDateLayout         = "2006-01-02"
)

// TQLQuoteRequest is the body of POST /ltl/quotes
type TQLQuoteRequest struct {
	Origin           TQLLocation    `json:"origin"`
	Destination      TQLLocation    `json:"destination"`
	PickupDate       string         `json:"pickupDate"`
	QuoteCommodities []TQLCommodity `json:"quoteCommodities"`
	Accessorials     []string       `json:"accessorials"`
}

type TQLLocation struct {
	PostalCode string `json:"postalCode"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country"`
}

type TQLCommodity struct {
	Description      string  `json:"description"`
	Quantity         int     `json:"quantity"`
	UnitType         string  `json:"unitType"`
	Weight           float64 `json:"weight"`
	DimensionLength  float64 `json:"dimensionLength"`
	DimensionWidth   float64 `json:"dimensionWidth"`
	DimensionHeight  float64 `json:"dimensionHeight"`
	FreightClassCode string  `json:"freightClassCode"`
	IsHazmat         bool    `json:"isHazmat"`
	IsStackable      bool    `json:"isStackable"`
}

// TQLQuoteResponse wraps the quote in a content envelope
type TQLQuoteResponse struct {
	Content TQLQuoteContent `json:"content"`
}

type TQLQuoteContent struct {
	QuoteID       json.Number       `json:"quoteId"`
	CarrierPrices []TQLCarrierPrice `json:"carrierPrices"`
}

// TQLCarrierPrice is one LTL carrier's offer
type TQLCarrierPrice struct {
	Carrier      string      `json:"carrier"`
	SCAC         string      `json:"scac"`
	CustomerRate json.Number `json:"customerRate"`
	TransitDays  int         `json:"transitDays"`
	ServiceLevel string      `json:"serviceLevel"`
	IsPreferred  bool        `json:"isPreferred"`
}
