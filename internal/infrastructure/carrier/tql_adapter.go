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

// TQLClient quotes palletized freight through the TQL LTL API
type TQLClient struct {
	base
	config TQLConfig
}

var _ shipping.CarrierClient = (*TQLClient)(nil)

// NewTQLClient creates a TQL client that authenticates through tokens
func NewTQLClient(config TQLConfig, tokens shipping.TokenProvider, opts ...Option) (*TQLClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TQLClient{
		base:   newBase(shipping.CarrierFreightBroker, config.Timeout, tokens, opts),
		config: config,
	}, nil
}

// SafetyMargin returns the configured token refresh margin
func (c *TQLClient) SafetyMargin() time.Duration {
	return c.config.TokenSafetyMargin
}

// TokenSource performs the resource-owner password exchange
func (c *TQLClient) TokenSource() shipping.TokenSource {
	return shipping.TokenSourceFunc(func(ctx context.Context) (shipping.CredentialToken, error) {
		form := url.Values{}
		form.Set("grant_type", "password")
		form.Set("username", c.config.Username)
		form.Set("password", c.config.Password)
		form.Set("client_id", c.config.ClientID)
		form.Set("client_secret", c.config.ClientSecret)
		form.Set("scope", "https://tqlidentity.onmicrosoft.com/services_combined/LTLQuotes.Read")

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+"/identity/connect/token", strings.NewReader(form.Encode()))
		if err != nil {
			return shipping.CredentialToken{}, fmt.Errorf("tql: failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(tqlSubscriptionHeader, c.config.SubscriptionKey)
		return c.exchangeToken(ctx, req)
	})
}

// Quote requests an LTL quote for the packages and returns one RateQuote per
// offering carrier
func (c *TQLClient) Quote(ctx context.Context, dest shipping.Destination, packages []shipping.Package) ([]shipping.RateQuote, error) {
	if len(packages) == 0 {
		return nil, shipping.NewCarrierRequestError(c.carrier, 0, ErrNoPackages)
	}

	body, err := c.postJSON(ctx, c.config.BaseURL+"/ltl/quotes", c.quoteRequest(dest, packages), map[string]string{
		tqlSubscriptionHeader: c.config.SubscriptionKey,
	})
	if err != nil {
		return nil, err
	}

	var resp TQLQuoteResponse
	if err := c.decode(body, &resp); err != nil {
		return nil, err
	}
	return tqlToRateQuotes(resp.Content, freightClassOf(packages))
}

func (c *TQLClient) quoteRequest(dest shipping.Destination, packages []shipping.Package) TQLQuoteRequest {
	commodities := make([]TQLCommodity, 0, len(packages))
	for _, p := range packages {
		unitType := tqlUnitTypePallet
		if p.Kind != shipping.PackageKindPallet {
			unitType = "Box"
		}
		commodities = append(commodities, TQLCommodity{
			Description:      c.config.Commodity,
			Quantity:         1,
			UnitType:         unitType,
			Weight:           p.WeightLb,
			DimensionLength:  p.Dims.Length,
			DimensionWidth:   p.Dims.Width,
			DimensionHeight:  p.Dims.Height,
			FreightClassCode: shipping.FreightClass(p.WeightLb, p.Dims),
		})
	}

	return TQLQuoteRequest{
		Origin:           tqlLocation(c.config.Origin),
		Destination:      tqlLocation(dest),
		PickupDate:       nextBusinessDay(c.now()).Format(tqlDateLayout),
		QuoteCommodities: commodities,
		Accessorials:     []string{},
	}
}

// tqlToRateQuotes adapts carrier prices, dropping offers without a usable rate.
func tqlToRateQuotes(content TQLQuoteContent, freightClass string) ([]shipping.RateQuote, error) {
	set := &offerSet{carrier: shipping.CarrierFreightBroker}
	for i, p := range content.CarrierPrices {
		cents, err := priceToCents(p.CustomerRate.String(), shipping.DefaultCurrency)
		if err != nil {
			set.drop("offer %d (%s): %v", i, p.Carrier, err)
			continue
		}

		name := "LTL Freight"
		if p.ServiceLevel != "" {
			name = "LTL " + p.ServiceLevel
		}
		if p.Carrier != "" {
			name += " - " + p.Carrier
		}
		detail := map[string]string{
			"freightClass": freightClass,
		}
		if content.QuoteID != "" {
			detail["quoteId"] = content.QuoteID.String()
		}
		if p.SCAC != "" {
			detail["scac"] = p.SCAC
		}
		if p.IsPreferred {
			detail["preferred"] = strconv.FormatBool(true)
		}

		set.add(shipping.RateQuote{
			CarrierID:     shipping.CarrierFreightBroker,
			ServiceName:   name,
			ServiceCode:   p.SCAC,
			PriceCents:    cents,
			Currency:      shipping.DefaultCurrency,
			EstimatedDays: shipping.Days(p.TransitDays),
			Detail:        detail,
		})
	}
	return set.result()
}

// freightClassOf returns the class of the least dense package, which governs
// the shipment.
func freightClassOf(packages []shipping.Package) string {
	class := ""
	lowest := 0.0
	for i, p := range packages {
		d := shipping.Density(p.WeightLb, p.Dims)
		if i == 0 || d < lowest {
			lowest = d
			class = shipping.FreightClass(p.WeightLb, p.Dims)
		}
	}
	return class
}

func tqlLocation(d shipping.Destination) TQLLocation {
	return TQLLocation{
		PostalCode: d.PostalCode,
		City:       d.City,
		State:      d.State,
		Country:    strings.ToUpper(d.Country),
	}
}

// nextBusinessDay returns the first weekday after t.
func nextBusinessDay(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
