package shipping

import (
	"context"
	"time"
)

// CarrierClient is implemented once per external rate provider.
//
// Quote either succeeds with zero or more quotes or fails entirely. When some
// offers in an otherwise valid response are malformed, the valid quotes are
// returned together with a *PartialQuoteError.
type CarrierClient interface {
	CarrierID() CarrierID
	Quote(ctx context.Context, dest Destination, packages []Package) ([]RateQuote, error)
}

// TokenSource performs a fresh credential exchange with a carrier.
type TokenSource interface {
	FetchToken(ctx context.Context) (CredentialToken, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (CredentialToken, error)

// FetchToken calls f(ctx).
func (f TokenSourceFunc) FetchToken(ctx context.Context) (CredentialToken, error) {
	return f(ctx)
}

// TokenProvider hands out valid access tokens to carrier clients.
type TokenProvider interface {
	GetToken(ctx context.Context, carrier CarrierID) (string, error)
	Invalidate(ctx context.Context, carrier CarrierID)
}

// TokenStore holds credential tokens keyed by carrier.
type TokenStore interface {
	// Get returns the stored token and true, or false when none is stored.
	Get(ctx context.Context, carrier CarrierID) (CredentialToken, bool, error)

	// Set stores the token until ttl elapses.
	Set(ctx context.Context, token CredentialToken, ttl time.Duration) error

	// Delete removes any stored token for carrier.
	Delete(ctx context.Context, carrier CarrierID) error

	// Close releases resources held by the store.
	Close() error
}
