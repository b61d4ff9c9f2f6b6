package credential

import (
	"testing"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTokenResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "client",
		"exp": now.Add(45 * time.Minute).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		body       string
		wantToken  string
		wantExpiry time.Time
	}{
		{
			name:       "numeric expires_in",
			body:       `{"access_token":"abc","token_type":"Bearer","expires_in":3600}`,
			wantToken:  "abc",
			wantExpiry: now.Add(time.Hour),
		},
		{
			name:       "string expires_in",
			body:       `{"access_token":"abc","expires_in":"14399"}`,
			wantToken:  "abc",
			wantExpiry: now.Add(14399 * time.Second),
		},
		{
			name:       "jwt exp claim when expires_in missing",
			body:       `{"access_token":"` + signed + `"}`,
			wantToken:  signed,
			wantExpiry: now.Add(45 * time.Minute),
		},
		{
			name:       "opaque token without expires_in",
			body:       `{"access_token":"opaque","expires_in":null}`,
			wantToken:  "opaque",
			wantExpiry: now.Add(DefaultTokenLifetime),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := ParseTokenResponse(shipping.CarrierLargeParcel, []byte(tt.body), now)
			require.NoError(t, err)
			assert.Equal(t, shipping.CarrierLargeParcel, tok.CarrierID)
			assert.Equal(t, tt.wantToken, tok.Token)
			assert.True(t, tt.wantExpiry.Equal(tok.ExpiresAt), "expiry %s, want %s", tok.ExpiresAt, tt.wantExpiry)
		})
	}
}

func TestParseTokenResponse_Invalid(t *testing.T) {
	now := time.Now()

	_, err := ParseTokenResponse(shipping.CarrierSmallParcel, []byte(`{"token_type":"Bearer"}`), now)
	assert.ErrorIs(t, err, ErrInvalidTokenResponse)

	_, err = ParseTokenResponse(shipping.CarrierSmallParcel, []byte(`<html>`), now)
	assert.ErrorIs(t, err, ErrInvalidTokenResponse)

	_, err = ParseTokenResponse(shipping.CarrierSmallParcel, []byte(`{"access_token":"a","expires_in":"soon"}`), now)
	assert.ErrorIs(t, err, ErrInvalidTokenResponse)
}
