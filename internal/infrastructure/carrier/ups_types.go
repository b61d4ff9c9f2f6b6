package carrier

import (
	"bytes"
	"encoding/json"
)

// upsServiceNames maps UPS service codes to customer-facing names
var upsServiceNames = map[string]string{
	"01": "Next Day Air",
	"02": "2nd Day Air",
	"03": "Ground",
	"12": "3 Day Select",
	"13": "Next Day Air Saver",
	"14": "Next Day Air Early",
	"59": "2nd Day Air A.M.",
	"65": "Worldwide Saver",
}

// UPS packaging and unit codes
const (
	upsPackagingCustomer = "02"
	upsUnitInches        = "IN"
	upsUnitPounds        = "LBS"
)

// UPSRateRequestEnvelope is the body of POST /api/rating/{version}/Shop
type UPSRateRequestEnvelope struct {
	RateRequest UPSRateRequest `json:"RateRequest"`
}

type UPSRateRequest struct {
	Request  UPSRequest  `json:"Request"`
	Shipment UPSShipment `json:"Shipment"`
}

type UPSRequest struct {
	RequestOption string `json:"RequestOption"`
}

type UPSShipment struct {
	Shipper  UPSShipper   `json:"Shipper"`
	ShipTo   UPSParty     `json:"ShipTo"`
	ShipFrom UPSParty     `json:"ShipFrom"`
	Package  []UPSPackage `json:"Package"`
}

type UPSShipper struct {
	Name          string     `json:"Name,omitempty"`
	ShipperNumber string     `json:"ShipperNumber"`
	Address       UPSAddress `json:"Address"`
}

type UPSParty struct {
	Name    string     `json:"Name,omitempty"`
	Address UPSAddress `json:"Address"`
}

type UPSAddress struct {
	AddressLine       []string `json:"AddressLine,omitempty"`
	City              string   `json:"City,omitempty"`
	StateProvinceCode string   `json:"StateProvinceCode,omitempty"`
	PostalCode        string   `json:"PostalCode"`
	CountryCode       string   `json:"CountryCode"`
}

type UPSPackage struct {
	PackagingType UPSCode          `json:"PackagingType"`
	Dimensions    UPSDimensions    `json:"Dimensions"`
	PackageWeight UPSPackageWeight `json:"PackageWeight"`
}

type UPSCode struct {
	Code        string `json:"Code"`
	Description string `json:"Description,omitempty"`
}

type UPSDimensions struct {
	UnitOfMeasurement UPSCode `json:"UnitOfMeasurement"`
	Length            string  `json:"Length"`
	Width             string  `json:"Width"`
	Height            string  `json:"Height"`
}

type UPSPackageWeight struct {
	UnitOfMeasurement UPSCode `json:"UnitOfMeasurement"`
	Weight            string  `json:"Weight"`
}

// UPSRateResponseEnvelope is the Shop response
type UPSRateResponseEnvelope struct {
	RateResponse UPSRateResponse `json:"RateResponse"`
}

type UPSRateResponse struct {
	RatedShipment UPSRatedShipments `json:"RatedShipment"`
}

// UPSRatedShipments decodes RatedShipment, which UPS sends as an object when
// a single service is rated and as an array otherwise.
type UPSRatedShipments []UPSRatedShipment

// UnmarshalJSON implements json.Unmarshaler.
func (r *UPSRatedShipments) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var single UPSRatedShipment
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*r = UPSRatedShipments{single}
		return nil
	}
	var many []UPSRatedShipment
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*r = many
	return nil
}

type UPSRatedShipment struct {
	Service               UPSCode                `json:"Service"`
	TotalCharges          UPSCharges             `json:"TotalCharges"`
	NegotiatedRateCharges *UPSNegotiatedCharges  `json:"NegotiatedRateCharges,omitempty"`
	GuaranteedDelivery    *UPSGuaranteedDelivery `json:"GuaranteedDelivery,omitempty"`
	BillingWeight         *UPSPackageWeight      `json:"BillingWeight,omitempty"`
}

type UPSCharges struct {
	CurrencyCode  string `json:"CurrencyCode"`
	MonetaryValue string `json:"MonetaryValue"`
}

type UPSNegotiatedCharges struct {
	TotalCharge UPSCharges `json:"TotalCharge"`
}

type UPSGuaranteedDelivery struct {
	BusinessDaysInTransit string `json:"BusinessDaysInTransit"`
	DeliveryByTime        string `json:"DeliveryByTime,omitempty"`
}

// charges prefers the negotiated account rate over the published rate.
func (s UPSRatedShipment) charges() UPSCharges {
	if s.NegotiatedRateCharges != nil && s.NegotiatedRateCharges.TotalCharge.MonetaryValue != "" {
		return s.NegotiatedRateCharges.TotalCharge
	}
	return s.TotalCharges
}
