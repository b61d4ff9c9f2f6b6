package carrier

import (
	"errors"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
)

const (
	// UPSProductionBaseURL is the production API host
	UPSProductionBaseURL = "https://onlinetools.ups.com"
	// UPSRatingVersion is the Rating API version used for Shop requests
	UPSRatingVersion = "v2409"
)

// Errors for UPS configuration
var (
	ErrUPSConfigMissingClientID      = errors.New("ups: client id is required")
	ErrUPSConfigMissingClientSecret  = errors.New("ups: client secret is required")
	ErrUPSConfigMissingAccountNumber = errors.New("ups: shipper account number is required")
	ErrUPSConfigMissingOriginZIP     = errors.New("ups: origin postal code is required")
)

// UPSConfig holds configuration for the UPS large-parcel integration
type UPSConfig struct {
	ClientID      string
	ClientSecret  string
	AccountNumber string
	BaseURL       string
	Timeout       time.Duration
	// TokenSafetyMargin is how long before expiry the token is refreshed
	TokenSafetyMargin time.Duration
	Origin            shipping.Destination
}

// Validate checks required fields and fills defaults
func (c *UPSConfig) Validate() error {
	if c.ClientID == "" {
		return ErrUPSConfigMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrUPSConfigMissingClientSecret
	}
	if c.AccountNumber == "" {
		return ErrUPSConfigMissingAccountNumber
	}
	if strings.TrimSpace(c.Origin.PostalCode) == "" {
		return ErrUPSConfigMissingOriginZIP
	}
	if c.BaseURL == "" {
		c.BaseURL = UPSProductionBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.TokenSafetyMargin = credential.ClampSafetyMargin(c.TokenSafetyMargin)
	if c.Origin.Country == "" {
		c.Origin.Country = "US"
	}
	return nil
}
