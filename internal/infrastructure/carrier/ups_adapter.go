package carrier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
)

// UPSClient quotes large-parcel shipments through the UPS Rating API
type UPSClient struct {
	base
	config UPSConfig
}

var _ shipping.CarrierClient = (*UPSClient)(nil)

// NewUPSClient creates a UPS client that authenticates through tokens
func NewUPSClient(config UPSConfig, tokens shipping.TokenProvider, opts ...Option) (*UPSClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &UPSClient{
		base:   newBase(shipping.CarrierLargeParcel, config.Timeout, tokens, opts),
		config: config,
	}, nil
}

// SafetyMargin returns the configured token refresh margin
func (c *UPSClient) SafetyMargin() time.Duration {
	return c.config.TokenSafetyMargin
}

// TokenSource performs the client-credentials exchange with HTTP basic auth
func (c *UPSClient) TokenSource() shipping.TokenSource {
	return shipping.TokenSourceFunc(func(ctx context.Context) (shipping.CredentialToken, error) {
		form := url.Values{}
		form.Set("grant_type", "client_credentials")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/security/v1/oauth/token", strings.NewReader(form.Encode()))
		if err != nil {
			return shipping.CredentialToken{}, fmt.Errorf("ups: failed to create token request: %w", err)
		}
		req.SetBasicAuth(c.config.ClientID, c.config.ClientSecret)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("x-merchant-id", c.config.AccountNumber)
		return c.exchangeToken(ctx, req)
	})
}

// Quote rates all packages as one shipment and returns every offered service
func (c *UPSClient) Quote(ctx context.Context, dest shipping.Destination, packages []shipping.Package) ([]shipping.RateQuote, error) {
	if len(packages) == 0 {
		return nil, shipping.NewCarrierRequestError(c.carrier, 0, ErrNoPackages)
	}

	endpoint := fmt.Sprintf("%s/api/rating/%s/Shop", c.config.BaseURL, UPSRatingVersion)
	body, err := c.postJSON(ctx, endpoint, c.rateRequest(dest, packages), map[string]string{
		"transId":        strconv.FormatInt(c.now().UnixNano(), 36),
		"transactionSrc": "forcedowels",
	})
	if err != nil {
		return nil, err
	}

	var resp UPSRateResponseEnvelope
	if err := c.decode(body, &resp); err != nil {
		return nil, err
	}
	return upsToRateQuotes(resp.RateResponse.RatedShipment, len(packages))
}

func (c *UPSClient) rateRequest(dest shipping.Destination, packages []shipping.Package) UPSRateRequestEnvelope {
	from := upsAddress(c.config.Origin)
	pkgs := make([]UPSPackage, 0, len(packages))
	for _, p := range packages {
		pkgs = append(pkgs, UPSPackage{
			PackagingType: UPSCode{Code: upsPackagingCustomer},
			Dimensions: UPSDimensions{
				UnitOfMeasurement: UPSCode{Code: upsUnitInches},
				Length:            formatFloat(p.Dims.Length),
				Width:             formatFloat(p.Dims.Width),
				Height:            formatFloat(p.Dims.Height),
			},
			PackageWeight: UPSPackageWeight{
				UnitOfMeasurement: UPSCode{Code: upsUnitPounds},
				Weight:            formatFloat(p.WeightLb),
			},
		})
	}

	return UPSRateRequestEnvelope{
		RateRequest: UPSRateRequest{
			Request: UPSRequest{RequestOption: "Shop"},
			Shipment: UPSShipment{
				Shipper:  UPSShipper{ShipperNumber: c.config.AccountNumber, Address: from},
				ShipFrom: UPSParty{Address: from},
				ShipTo:   UPSParty{Address: upsAddress(dest)},
				Package:  pkgs,
			},
		},
	}
}

// upsToRateQuotes adapts rated shipments, dropping offers without a usable price.
func upsToRateQuotes(shipments UPSRatedShipments, packageCount int) ([]shipping.RateQuote, error) {
	set := &offerSet{carrier: shipping.CarrierLargeParcel}
	for i, s := range shipments {
		code := s.Service.Code
		if code == "" {
			set.drop("offer %d: missing service code", i)
			continue
		}
		charges := s.charges()
		cents, err := priceToCents(charges.MonetaryValue, charges.CurrencyCode)
		if err != nil {
			set.drop("service %s: %v", code, err)
			continue
		}

		name, ok := upsServiceNames[code]
		if !ok {
			name = "UPS Service " + code
		}
		q := shipping.RateQuote{
			CarrierID:   shipping.CarrierLargeParcel,
			ServiceName: name,
			ServiceCode: code,
			PriceCents:  cents,
			Currency:    charges.CurrencyCode,
			Detail: map[string]string{
				"packageCount": strconv.Itoa(packageCount),
			},
		}
		if s.GuaranteedDelivery != nil {
			if days, err := strconv.Atoi(strings.TrimSpace(s.GuaranteedDelivery.BusinessDaysInTransit)); err == nil {
				q.EstimatedDays = shipping.Days(days)
			}
		}
		if s.BillingWeight != nil && s.BillingWeight.Weight != "" {
			q.Detail["billingWeightLb"] = s.BillingWeight.Weight
		}
		set.add(q)
	}
	return set.result()
}

func upsAddress(d shipping.Destination) UPSAddress {
	addr := UPSAddress{
		City:              d.City,
		StateProvinceCode: d.State,
		PostalCode:        d.PostalCode,
		CountryCode:       strings.ToUpper(d.Country),
	}
	if d.Street != "" {
		addr.AddressLine = []string{d.Street}
	}
	return addr
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
