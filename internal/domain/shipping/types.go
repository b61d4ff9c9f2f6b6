package shipping

import (
	"fmt"
	"strings"
	"time"
)

// ItemKind identifies how an orderable item is sold.
type ItemKind string

const (
	ItemKindBulk ItemKind = "bulk"
	ItemKindKit  ItemKind = "kit"
	ItemKindTest ItemKind = "test"
)

// IsValid reports whether the kind is one the resolver knows how to pack.
func (k ItemKind) IsValid() bool {
	switch k {
	case ItemKindBulk, ItemKindKit, ItemKindTest:
		return true
	}
	return false
}

// ParseItemKind normalizes a caller supplied kind ("Bulk", " kit ") into an ItemKind.
func ParseItemKind(s string) (ItemKind, error) {
	k := ItemKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", NewValidationError("kind", fmt.Sprintf("unknown item kind %q", s))
	}
	return k, nil
}

// CartItem is one line of an order as seen by the shipping engine.
type CartItem struct {
	Kind     ItemKind `json:"kind"`
	Quantity int      `json:"quantity"`
}

// PackageKind classifies a package for carrier routing.
type PackageKind string

const (
	PackageKindParcel PackageKind = "parcel"
	PackageKindPallet PackageKind = "pallet"
)

// Packaging tags attached to every package so routing can tell bulk boxes
// from kit cartons without looking at dimensions.
const (
	TagBulkBox    = "bulk-box"
	TagBulkPallet = "bulk-pallet"
	TagKitCarton  = "kit-carton"
	TagTest       = "test"
)

// Dimensions are outer package dimensions in inches.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CubicInches returns the package volume.
func (d Dimensions) CubicInches() float64 {
	return d.Length * d.Width * d.Height
}

// CubicFeet returns the package volume in cubic feet.
func (d Dimensions) CubicFeet() float64 {
	return d.CubicInches() / 1728
}

// Package is a single physical shipping unit produced by the PackagingResolver.
type Package struct {
	Kind             PackageKind `json:"kind"`
	WeightLb         float64     `json:"weightLb"`
	Dims             Dimensions  `json:"dims"`
	RepresentedUnits int         `json:"representedUnits"`
	PackagingTag     string      `json:"packagingTag"`
	Label            string      `json:"label"`
}

// IsBulkBox reports whether the package is a parcel holding bulk units.
func (p Package) IsBulkBox() bool {
	return p.Kind == PackageKindParcel && p.PackagingTag == TagBulkBox
}

// IsKitCarton reports whether the package is a kit carton.
func (p Package) IsKitCarton() bool {
	return p.PackagingTag == TagKitCarton
}

// PlanTotals are the resolved quantities a plan was built from.
type PlanTotals struct {
	BulkUnits int `json:"bulkUnits"`
	KitQty    int `json:"kitQty"`
	TestQty   int `json:"testQty"`
}

// PackagePlan is the full packaging outcome for one quote request.
type PackagePlan struct {
	Parcels []Package  `json:"parcels"`
	Pallets []Package  `json:"pallets"`
	Totals  PlanTotals `json:"totals"`
}

// HasPallets reports whether any pallet was produced.
func (p PackagePlan) HasPallets() bool {
	return len(p.Pallets) > 0
}

// IsEmpty reports whether the plan contains no packages at all.
func (p PackagePlan) IsEmpty() bool {
	return len(p.Parcels) == 0 && len(p.Pallets) == 0
}

// TotalWeightLb sums the weight of every package in the plan.
func (p PackagePlan) TotalWeightLb() float64 {
	var total float64
	for _, pkg := range p.Parcels {
		total += pkg.WeightLb
	}
	for _, pkg := range p.Pallets {
		total += pkg.WeightLb
	}
	return total
}

// Destination is the ship-to address.
type Destination struct {
	Country    string `json:"country"`
	State      string `json:"state"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Street     string `json:"street,omitempty"`
}

// Validate applies the minimal checks needed before any carrier is contacted.
func (d Destination) Validate() error {
	if strings.TrimSpace(d.PostalCode) == "" {
		return NewValidationError("destination.postalCode", "postal code is required")
	}
	if strings.TrimSpace(d.Country) == "" {
		return NewValidationError("destination.country", "country is required")
	}
	return nil
}

// CarrierID identifies a rate provider.
type CarrierID string

const (
	CarrierSmallParcel   CarrierID = "small-parcel"
	CarrierLargeParcel   CarrierID = "large-parcel"
	CarrierFreightBroker CarrierID = "freight-broker"
)

// DisplayName returns the customer-facing carrier name.
func (c CarrierID) DisplayName() string {
	switch c {
	case CarrierSmallParcel:
		return "USPS"
	case CarrierLargeParcel:
		return "UPS"
	case CarrierFreightBroker:
		return "TQL Freight"
	default:
		return string(c)
	}
}

// DefaultCurrency is the currency every carrier in this system quotes in.
const DefaultCurrency = "USD"

// RateQuote is one normalized shipping offer.
type RateQuote struct {
	CarrierID     CarrierID         `json:"carrierId"`
	CarrierName   string            `json:"carrierName"`
	ServiceName   string            `json:"serviceName"`
	ServiceCode   string            `json:"serviceCode"`
	PriceCents    int64             `json:"priceCents"`
	Currency      string            `json:"currency"`
	EstimatedDays *int              `json:"estimatedDays"`
	Detail        map[string]string `json:"detail,omitempty"`
}

// Days returns a pointer to n, or nil when n is not a usable transit time.
func Days(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// CarrierSelection is one routing decision: a carrier and the packages it may quote.
type CarrierSelection struct {
	CarrierID CarrierID `json:"carrierId"`
	Packages  []Package `json:"packages"`
}

// CarrierOutcome is the result of querying one carrier. Err is nil on success;
// on failure Quotes is always empty.
type CarrierOutcome struct {
	CarrierID CarrierID
	Quotes    []RateQuote
	Err       error
	// Dropped counts malformed offers discarded from an otherwise successful response.
	Dropped  int
	Duration time.Duration
}

// Failed reports whether the carrier call failed.
func (o CarrierOutcome) Failed() bool {
	return o.Err != nil
}

// CarrierFailure is the diagnostic record of a failed carrier.
type CarrierFailure struct {
	CarrierID CarrierID `json:"carrierId"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason"`
}

// CredentialToken is an access token held by the credential cache.
type CredentialToken struct {
	CarrierID CarrierID `json:"carrierId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ValidAt reports whether the token may still be used at now given a safety margin.
func (t CredentialToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.Token != "" && now.Before(t.ExpiresAt.Add(-margin))
}
