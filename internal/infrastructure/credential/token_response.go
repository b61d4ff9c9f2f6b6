package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetime applies when neither expires_in nor a JWT exp claim is present.
const DefaultTokenLifetime = 15 * time.Minute

var ErrInvalidTokenResponse = errors.New("credential: invalid token response")

// Seconds decodes an OAuth expires_in value sent either as a number or as a
// numeric string.
type Seconds int64

// UnmarshalJSON implements json.Unmarshaler.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if str == "" {
			*s = 0
			return nil
		}
		data = []byte(str)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("expires_in: %w", err)
	}
	*s = Seconds(n)
	return nil
}

// TokenResponse is the OAuth2 token endpoint payload shared by the carriers.
type TokenResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresIn   Seconds `json:"expires_in"`
	Scope       string  `json:"scope,omitempty"`
}

// ParseTokenResponse decodes body into a CredentialToken issued at now.
// Expiry comes from expires_in, then from the JWT exp claim, then
// DefaultTokenLifetime.
func ParseTokenResponse(carrier shipping.CarrierID, body []byte, now time.Time) (shipping.CredentialToken, error) {
	var resp TokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return shipping.CredentialToken{}, fmt.Errorf("%w: %v", ErrInvalidTokenResponse, err)
	}
	if resp.AccessToken == "" {
		return shipping.CredentialToken{}, fmt.Errorf("%w: missing access_token", ErrInvalidTokenResponse)
	}

	expiresAt := now.Add(DefaultTokenLifetime)
	switch {
	case resp.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	default:
		if exp, ok := JWTExpiry(resp.AccessToken); ok {
			expiresAt = exp
		}
	}

	return shipping.CredentialToken{
		CarrierID: carrier,
		Token:     resp.AccessToken,
		ExpiresAt: expiresAt,
	}, nil
}

// JWTExpiry reads the exp claim of an access token without verifying its
// signature. Opaque tokens report false.
func JWTExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
