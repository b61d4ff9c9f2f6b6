package carrier

import (
	"errors"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
)

// TQLProductionBaseURL is the TQL public API host
const TQLProductionBaseURL = "https://public.api.tql.com"

// Errors for TQL configuration
var (
	ErrTQLConfigMissingClientID        = errors.New("tql: client id is required")
	ErrTQLConfigMissingClientSecret    = errors.New("tql: client secret is required")
	ErrTQLConfigMissingUsername        = errors.New("tql: username is required")
	ErrTQLConfigMissingPassword        = errors.New("tql: password is required")
	ErrTQLConfigMissingSubscriptionKey = errors.New("tql: subscription key is required")
	ErrTQLConfigMissingOriginZIP       = errors.New("tql: origin postal code is required")
)

// TQLConfig holds configuration for the TQL freight-broker integration
type TQLConfig struct {
	ClientID     string
	ClientSecret string
	// Username and Password are the portal credentials used by the password grant
	Username string
	Password string
	// SubscriptionKey is sent as Ocp-Apim-Subscription-Key on every call
	SubscriptionKey   string
	BaseURL           string
	Timeout           time.Duration
	TokenSafetyMargin time.Duration
	Origin            shipping.Destination
	// Commodity describes the freight on the quote request
	Commodity string
}

// Validate checks required fields and fills defaults
func (c *TQLConfig) Validate() error {
	switch {
	case c.ClientID == "":
		return ErrTQLConfigMissingClientID
	case c.ClientSecret == "":
		return ErrTQLConfigMissingClientSecret
	case c.Username == "":
		return ErrTQLConfigMissingUsername
	case c.Password == "":
		return ErrTQLConfigMissingPassword
	case c.SubscriptionKey == "":
		return ErrTQLConfigMissingSubscriptionKey
	case strings.TrimSpace(c.Origin.PostalCode) == "":
		return ErrTQLConfigMissingOriginZIP
	}
	if c.BaseURL == "" {
		c.BaseURL = TQLProductionBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	c.TokenSafetyMargin = credential.ClampSafetyMargin(c.TokenSafetyMargin)
	if c.Origin.Country == "" {
		c.Origin.Country = "US"
	}
	if c.Commodity == "" {
		c.Commodity = "Wood dowel pins"
	}
	return nil
}
