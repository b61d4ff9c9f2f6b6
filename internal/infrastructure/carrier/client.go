// Package carrier implements shipping.CarrierClient for the USPS, UPS and TQL
// rating APIs.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/forcedowels/backend/internal/domain/shared/valueobject"
	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/credential"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum accepted carrier response body (2MB)
const maxResponseSize = 2 * 1024 * 1024

// DefaultTimeout is the HTTP timeout applied when a carrier config sets none.
const DefaultTimeout = 15 * time.Second

var (
	ErrUnauthorized           = errors.New("carrier: access token rejected")
	ErrUnsupportedDestination = errors.New("carrier: destination not served")
	ErrNoPackages             = errors.New("carrier: no packages to quote")
)

// Option configures a carrier client.
type Option func(*base)

// WithHTTPClient replaces the HTTP client used for token and rate calls.
func WithHTTPClient(client *http.Client) Option {
	return func(b *base) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock overrides the time source used for token expiry and pickup dates.
func WithClock(clock credential.Clock) Option {
	return func(b *base) {
		if clock != nil {
			b.now = clock
		}
	}
}

// base holds what every carrier client shares: transport, token provider and logging.
type base struct {
	carrier    shipping.CarrierID
	httpClient *http.Client
	tokens     shipping.TokenProvider
	logger     *zap.Logger
	now        credential.Clock
}

func newBase(carrier shipping.CarrierID, timeout time.Duration, tokens shipping.TokenProvider, opts []Option) base {
	b := base{
		carrier:    carrier,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With(zap.String("carrier", string(carrier)))
	return b
}

// CarrierID returns the carrier this client quotes for.
func (b *base) CarrierID() shipping.CarrierID {
	return b.carrier
}

// send performs req and returns the status code and the size-limited body.
func (b *base) send(ctx context.Context, req *http.Request) (int, []byte, error) {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return 0, nil, fmt.Errorf("%w: %v", shipping.ErrCarrierTimeout, err)
		}
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// exchangeToken posts a token request and parses the OAuth2 response.
func (b *base) exchangeToken(ctx context.Context, req *http.Request) (shipping.CredentialToken, error) {
	status, body, err := b.send(ctx, req)
	if err != nil {
		return shipping.CredentialToken{}, err
	}
	if status != http.StatusOK {
		return shipping.CredentialToken{}, fmt.Errorf("token endpoint returned HTTP %d: %s", status, snippet(body))
	}
	return credential.ParseTokenResponse(b.carrier, body, b.now())
}

// postJSON sends payload to url with a bearer token. A 401 invalidates the
// cached token and the request is retried once with a fresh one.
func (b *base) postJSON(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, shipping.NewCarrierRequestError(b.carrier, 0, fmt.Errorf("failed to encode request: %w", err))
	}

	for attempt := 0; ; attempt++ {
		token, err := b.tokens.GetToken(ctx, b.carrier)
		if err != nil {
			var authErr *shipping.AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			return nil, shipping.NewAuthError(b.carrier, err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, shipping.NewCarrierRequestError(b.carrier, 0, fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		status, body, err := b.send(ctx, req)
		if err != nil {
			return nil, shipping.NewCarrierRequestError(b.carrier, 0, err)
		}

		switch {
		case status == http.StatusUnauthorized && attempt == 0:
			b.logger.Info("carrier rejected access token, refreshing")
			b.tokens.Invalidate(ctx, b.carrier)
			continue
		case status == http.StatusUnauthorized:
			b.tokens.Invalidate(ctx, b.carrier)
			return nil, shipping.NewAuthError(b.carrier, ErrUnauthorized)
		case status >= 400:
			return nil, shipping.NewCarrierRequestError(b.carrier, status, fmt.Errorf("HTTP %d: %s", status, snippet(body)))
		}
		return body, nil
	}
}

// decode unmarshals a rating response into v.
func (b *base) decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return shipping.NewCarrierRequestError(b.carrier, http.StatusOK,
			fmt.Errorf("%w: %v", shipping.ErrCarrierInvalidResp, err))
	}
	return nil
}

// offerSet collects normalized quotes and the reasons offers were dropped.
type offerSet struct {
	carrier shipping.CarrierID
	quotes  []shipping.RateQuote
	reasons []string
}

func (s *offerSet) add(q shipping.RateQuote) {
	s.quotes = append(s.quotes, q)
}

func (s *offerSet) drop(format string, args ...any) {
	s.reasons = append(s.reasons, fmt.Sprintf(format, args...))
}

// result returns the quotes together with a PartialQuoteError when offers
// were dropped. The call still succeeded when every offer was dropped.
func (s *offerSet) result() ([]shipping.RateQuote, error) {
	if len(s.reasons) == 0 {
		return s.quotes, nil
	}
	return s.quotes, &shipping.PartialQuoteError{
		CarrierID: s.carrier,
		Dropped:   len(s.reasons),
		Reasons:   s.reasons,
	}
}

// priceToCents converts a decimal price to integer minor units.
func priceToCents(amount, currency string) (int64, error) {
	if currency == "" {
		currency = shipping.DefaultCurrency
	}
	money, err := valueobject.NewMoneyFromString(strings.TrimSpace(amount), valueobject.Currency(currency))
	if err != nil {
		return 0, err
	}
	if !money.IsPositive() {
		return 0, fmt.Errorf("non-positive price %q", amount)
	}
	return money.MinorUnits(), nil
}

// zip5 returns the five-digit ZIP code of a US postal code.
func zip5(postalCode string) string {
	postalCode = strings.TrimSpace(postalCode)
	if len(postalCode) > 5 {
		return postalCode[:5]
	}
	return postalCode
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// Authenticated is a carrier client that brings its own credential exchange.
type Authenticated interface {
	shipping.CarrierClient
	TokenSource() shipping.TokenSource
	SafetyMargin() time.Duration
}

// TokenRegistrar accepts per-carrier token sources.
type TokenRegistrar interface {
	Register(carrier shipping.CarrierID, source shipping.TokenSource, margin time.Duration)
}

// RegisterTokenSources registers the credential exchange of every client.
func RegisterTokenSources(registrar TokenRegistrar, clients ...Authenticated) {
	for _, c := range clients {
		registrar.Register(c.CarrierID(), c.TokenSource(), c.SafetyMargin())
	}
}
