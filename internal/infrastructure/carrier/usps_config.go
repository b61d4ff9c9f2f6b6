package carrier

import (
	"errors"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
)

// USPSProductionBaseURL is the USPS APIs host
const USPSProductionBaseURL = "https://apis.usps.com"

// Errors for USPS configuration
var (
	ErrUSPSConfigMissingClientID     = errors.New("usps: client id is required")
	ErrUSPSConfigMissingClientSecret = errors.New("usps: client secret is required")
	ErrUSPSConfigMissingOriginZIP    = errors.New("usps: origin postal code is required")
)

// USPSConfig holds configuration for the USPS small-parcel integration
type USPSConfig struct {
	// ClientID and ClientSecret are the OAuth2 application credentials
	ClientID     string
	ClientSecret string
	// BaseURL is the API host (production or test environment)
	BaseURL string
	// Timeout bounds each HTTP call
	Timeout time.Duration
	// TokenSafetyMargin is how long before expiry the token is refreshed
	TokenSafetyMargin time.Duration
	// KitFlatRateCents enables the flat-rate kit carton quote when positive
	KitFlatRateCents int64
	// Origin is the ship-from address
	Origin shipping.Destination
}

// Validate checks required fields and fills defaults
func (c *USPSConfig) Validate() error {
	if c.ClientID == "" {
		return ErrUSPSConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrUSPSConfigMissingClientSecret
	}
	if strings.TrimSpace(c.Origin.PostalCode) == "" {
		return ErrUSPSConfigMissingOriginZIP
	}
	if c.BaseURL == "" {
		c.BaseURL = USPSProductionBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.TokenSafetyMargin = credential.ClampSafetyMargin(c.TokenSafetyMargin)
	if c.KitFlatRateCents < 0 {
		c.KitFlatRateCents = 0
	}
	return nil
}
