package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestUSPSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  USPSConfig
		wantErr error
	}{
		{
			name:   "valid config",
			config: USPSConfig{ClientID: "id", ClientSecret: "secret", Origin: testOrigin},
		},
		{
			name:    "missing client id",
			config:  USPSConfig{ClientSecret: "secret", Origin: testOrigin},
			wantErr: ErrUSPSConfigMissingClientID,
		},
		{
			name:    "missing client secret",
			config:  USPSConfig{ClientID: "id", Origin: testOrigin},
			wantErr: ErrUSPSConfigMissingClientSecret,
		},
		{
			name:    "missing origin",
			config:  USPSConfig{ClientID: "id", ClientSecret: "secret"},
			wantErr: ErrUSPSConfigMissingOriginZIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, USPSProductionBaseURL, tt.config.BaseURL)
			assert.Equal(t, DefaultTimeout, tt.config.Timeout)
			assert.Equal(t, 120*time.Second, tt.config.TokenSafetyMargin)
		})
	}
}

// ---------------------------------------------------------------------------
// Quote Tests
// ---------------------------------------------------------------------------

// uspsServer prices each package by weight: Priority = weight, Ground = weight/2.
// Express is offered only for packages under 5 lb.
func uspsServer(t *testing.T, requests *[]USPSRateRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prices/v3/total-rates/search", r.URL.Path)

		var req USPSRateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		options := []map[string]any{
			{"totalBasePrice": req.Weight, "rates": []map[string]any{{"mailClass": USPSMailClassPriority}}},
			{"totalBasePrice": req.Weight / 2, "rates": []map[string]any{{"mailClass": USPSMailClassGroundAdvantage}}},
		}
		if req.Weight < 5 {
			options = append(options, map[string]any{
				"totalBasePrice": 30, "rates": []map[string]any{{"mailClass": USPSMailClassPriorityExpress}},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"rateOptions": options})
	}))
}

func newTestUSPSClient(t *testing.T, baseURL string, flatRate int64) *USPSClient {
	t.Helper()
	c, err := NewUSPSClient(USPSConfig{
		ClientID:         "id",
		ClientSecret:     "secret",
		BaseURL:          baseURL,
		KitFlatRateCents: flatRate,
		Origin:           testOrigin,
	}, &stubTokens{}, WithClock(fixedNow))
	require.NoError(t, err)
	return c
}

func TestUSPSClient_Quote_SumsMailClassesAcrossPackages(t *testing.T) {
	var requests []USPSRateRequest
	server := uspsServer(t, &requests)
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 0)
	pkgs := newTestResolver(t).ResolveKits(6, shipping.SmallParcelKitCarton) // 6.4 lb + 3.2 lb

	quotes, err := client.Quote(context.Background(), testDestination, pkgs)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "98101", requests[0].OriginZIPCode)
	assert.Equal(t, "97201", requests[0].DestinationZIPCode)
	assert.Equal(t, 6.4, requests[0].Weight)

	// Express priced only the lighter carton so it is not offered.
	require.Len(t, quotes, 2)
	assert.Equal(t, USPSMailClassPriority, quotes[0].ServiceCode)
	assert.Equal(t, "Priority Mail", quotes[0].ServiceName)
	assert.Equal(t, int64(960), quotes[0].PriceCents)
	assert.Equal(t, 2, *quotes[0].EstimatedDays)
	assert.Equal(t, USPSMailClassGroundAdvantage, quotes[1].ServiceCode)
	assert.Equal(t, int64(480), quotes[1].PriceCents)
	assert.Equal(t, "2", quotes[1].Detail["packageCount"])
}

func TestUSPSClient_Quote_KitFlatRate(t *testing.T) {
	var requests []USPSRateRequest
	server := uspsServer(t, &requests)
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 1895)
	resolver := newTestResolver(t)

	quotes, err := client.Quote(context.Background(), testDestination, resolver.ResolveKits(8, shipping.SmallParcelKitCarton))
	require.NoError(t, err)

	var flat *shipping.RateQuote
	for i := range quotes {
		if quotes[i].ServiceCode == USPSMailClassFlatRate {
			flat = &quotes[i]
		}
	}
	require.NotNil(t, flat)
	assert.Equal(t, int64(2*1895), flat.PriceCents)
	assert.Equal(t, "Priority Mail Flat Rate", flat.ServiceName)

	t.Run("not offered when a non-kit package is present", func(t *testing.T) {
		pkgs := append(resolver.ResolveKits(2, shipping.SmallParcelKitCarton), resolver.TestParcel())
		quotes, err := client.Quote(context.Background(), testDestination, pkgs)
		require.NoError(t, err)
		for _, q := range quotes {
			assert.NotEqual(t, USPSMailClassFlatRate, q.ServiceCode)
		}
	})
}

func TestUSPSClient_Quote_MalformedOptionIsPartial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"rateOptions":[
			{"totalBasePrice": 9.45, "rates":[{"mailClass":"PRIORITY_MAIL"}]},
			{"totalBasePrice": 0, "rates":[{"mailClass":"USPS_GROUND_ADVANTAGE"}]},
			{"totalBasePrice": 3.10, "rates":[]}
		]}`)
	}))
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 0)
	quotes, err := client.Quote(context.Background(), testDestination, []shipping.Package{newTestResolver(t).TestParcel()})

	require.Len(t, quotes, 1)
	assert.Equal(t, int64(945), quotes[0].PriceCents)

	var partial *shipping.PartialQuoteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 2, partial.Dropped)
}

func TestUSPSClient_Quote_Rejections(t *testing.T) {
	client := newTestUSPSClient(t, "http://127.0.0.1:1", 0)

	_, err := client.Quote(context.Background(), testDestination, nil)
	assert.ErrorIs(t, err, ErrNoPackages)

	foreign := testDestination
	foreign.Country = "CA"
	_, err = client.Quote(context.Background(), foreign, []shipping.Package{newTestResolver(t).TestParcel()})
	assert.ErrorIs(t, err, ErrUnsupportedDestination)
	assert.ErrorIs(t, err, shipping.ErrCarrierRequestFailed)
}

func TestUSPSClient_Quote_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 0)
	_, err := client.Quote(context.Background(), testDestination, []shipping.Package{newTestResolver(t).TestParcel()})
	assert.ErrorIs(t, err, shipping.ErrCarrierInvalidResp)
}

// ---------------------------------------------------------------------------
// Token Tests
// ---------------------------------------------------------------------------

func TestUSPSClient_TokenSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth2/v3/token", r.URL.Path)
		var req USPSTokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client_credentials", req.GrantType)
		assert.Equal(t, "id", req.ClientID)
		assert.Equal(t, "secret", req.ClientSecret)
		fmt.Fprint(w, `{"access_token":"usps-token","token_type":"Bearer","expires_in":"28799"}`)
	}))
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 0)
	token, err := client.TokenSource().FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "usps-token", token.Token)
	assert.Equal(t, shipping.CarrierSmallParcel, token.CarrierID)
	assert.Equal(t, fixedNow().Add(28799*time.Second), token.ExpiresAt)
}

func TestUSPSClient_TokenSource_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer server.Close()

	client := newTestUSPSClient(t, server.URL, 0)
	_, err := client.TokenSource().FetchToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_client")
}
