package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"go.uber.org/zap"
)

// USPSClient quotes small-parcel shipments through the USPS Prices API
type USPSClient struct {
	base
	config USPSConfig
}

var _ shipping.CarrierClient = (*USPSClient)(nil)

// NewUSPSClient creates a USPS client that authenticates through tokens
func NewUSPSClient(config USPSConfig, tokens shipping.TokenProvider, opts ...Option) (*USPSClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &USPSClient{
		base:   newBase(shipping.CarrierSmallParcel, config.Timeout, tokens, opts),
		config: config,
	}, nil
}

// SafetyMargin returns the configured token refresh margin
func (c *USPSClient) SafetyMargin() time.Duration {
	return c.config.TokenSafetyMargin
}

// TokenSource performs the client-credentials exchange
func (c *USPSClient) TokenSource() shipping.TokenSource {
	return shipping.TokenSourceFunc(func(ctx context.Context) (shipping.CredentialToken, error) {
		payload, err := json.Marshal(USPSTokenRequest{
			GrantType:    "client_credentials",
			ClientID:     c.config.ClientID,
			ClientSecret: c.config.ClientSecret,
		})
		if err != nil {
			return shipping.CredentialToken{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/oauth2/v3/token", bytes.NewReader(payload))
		if err != nil {
			return shipping.CredentialToken{}, fmt.Errorf("usps: failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.exchangeToken(ctx, req)
	})
}

// Quote prices every package and sums the rates per mail class. A mail class
// is offered only when it priced every package.
func (c *USPSClient) Quote(ctx context.Context, dest shipping.Destination, packages []shipping.Package) ([]shipping.RateQuote, error) {
	if len(packages) == 0 {
		return nil, shipping.NewCarrierRequestError(c.carrier, 0, ErrNoPackages)
	}
	if !strings.EqualFold(dest.Country, "US") {
		return nil, shipping.NewCarrierRequestError(c.carrier, 0, fmt.Errorf("%w: %s", ErrUnsupportedDestination, dest.Country))
	}

	set := &offerSet{carrier: c.carrier}
	totals := make(map[string]int64)
	priced := make(map[string]int)

	for i, pkg := range packages {
		body, err := c.postJSON(ctx, c.config.BaseURL+"/prices/v3/total-rates/search", c.rateRequest(dest, pkg), nil)
		if err != nil {
			return nil, err
		}
		var resp USPSRateResponse
		if err := c.decode(body, &resp); err != nil {
			return nil, err
		}

		for class, cents := range c.cheapestPerClass(set, i, resp.RateOptions) {
			totals[class] += cents
			priced[class]++
		}
	}

	for _, class := range uspsMailClasses {
		if priced[class] != len(packages) {
			if priced[class] > 0 {
				c.logger.Debug("mail class did not price every package",
					zap.String("mail_class", class),
					zap.Int("priced", priced[class]),
					zap.Int("packages", len(packages)))
			}
			continue
		}
		set.add(uspsQuote(class, totals[class], len(packages)))
	}

	if flat, ok := c.flatRate(packages); ok {
		set.add(flat)
	}

	return set.result()
}

func (c *USPSClient) rateRequest(dest shipping.Destination, pkg shipping.Package) USPSRateRequest {
	return USPSRateRequest{
		OriginZIPCode:      zip5(c.config.Origin.PostalCode),
		DestinationZIPCode: zip5(dest.PostalCode),
		Weight:             pkg.WeightLb,
		Length:             pkg.Dims.Length,
		Width:              pkg.Dims.Width,
		Height:             pkg.Dims.Height,
		MailClasses:        uspsMailClasses,
		PriceType:          "COMMERCIAL",
	}
}

// cheapestPerClass keeps the lowest valid price of each mail class in one
// package's response and records malformed options on set.
func (c *USPSClient) cheapestPerClass(set *offerSet, pkgIndex int, options []USPSRateOption) map[string]int64 {
	cheapest := make(map[string]int64, len(options))
	for j, opt := range options {
		class := opt.mailClass()
		if class == "" {
			set.drop("package %d option %d: missing mail class", pkgIndex, j)
			continue
		}
		cents, err := priceToCents(opt.price(), shipping.DefaultCurrency)
		if err != nil {
			set.drop("package %d %s: %v", pkgIndex, class, err)
			continue
		}
		if prev, ok := cheapest[class]; !ok || cents < prev {
			cheapest[class] = cents
		}
	}
	return cheapest
}

// flatRate prices a shipment made only of kit cartons at the configured flat rate.
func (c *USPSClient) flatRate(packages []shipping.Package) (shipping.RateQuote, bool) {
	if c.config.KitFlatRateCents <= 0 {
		return shipping.RateQuote{}, false
	}
	for _, p := range packages {
		if !p.IsKitCarton() {
			return shipping.RateQuote{}, false
		}
	}
	return uspsQuote(USPSMailClassFlatRate, c.config.KitFlatRateCents*int64(len(packages)), len(packages)), true
}

// uspsQuote adapts a summed mail class price to a RateQuote.
func uspsQuote(class string, cents int64, packageCount int) shipping.RateQuote {
	name, ok := uspsServiceNames[class]
	if !ok {
		name = class
	}
	return shipping.RateQuote{
		CarrierID:     shipping.CarrierSmallParcel,
		ServiceName:   name,
		ServiceCode:   class,
		PriceCents:    cents,
		Currency:      shipping.DefaultCurrency,
		EstimatedDays: shipping.Days(uspsTransitDays[class]),
		Detail: map[string]string{
			"mailClass":    class,
			"packageCount": strconv.Itoa(packageCount),
		},
	}
}
