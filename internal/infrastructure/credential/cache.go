// Package credential caches carrier access tokens and refreshes them shortly
// before they expire.
package credential

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Safety margin bounds. A token is refreshed once now >= expiresAt - margin.
const (
	MinSafetyMargin     = 60 * time.Second
	MaxSafetyMargin     = 300 * time.Second
	DefaultSafetyMargin = 120 * time.Second

	// DefaultExchangeTimeout bounds a single credential exchange.
	DefaultExchangeTimeout = 30 * time.Second
)

var (
	ErrSourceNotRegistered = errors.New("credential: no token source registered for carrier")
	ErrEmptyToken          = errors.New("credential: exchange returned an empty token")
)

// Clock returns the current time.
type Clock func() time.Time

// RefreshRecorder receives the outcome of every credential exchange.
type RefreshRecorder interface {
	RecordTokenRefresh(ctx context.Context, carrier shipping.CarrierID, err error)
}

type registration struct {
	source shipping.TokenSource
	margin time.Duration
}

// Cache hands out carrier access tokens. Concurrent callers that miss for the
// same carrier share a single exchange.
type Cache struct {
	store           shipping.TokenStore
	clock           Clock
	logger          *zap.Logger
	recorder        RefreshRecorder
	exchangeTimeout time.Duration

	mu      sync.RWMutex
	sources map[shipping.CarrierID]registration
	group   singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithRefreshRecorder reports every exchange to recorder.
func WithRefreshRecorder(recorder RefreshRecorder) Option {
	return func(c *Cache) {
		c.recorder = recorder
	}
}

// WithExchangeTimeout bounds each credential exchange.
func WithExchangeTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.exchangeTimeout = d
	}
}

// NewCache creates a cache backed by store.
func NewCache(store shipping.TokenStore, opts ...Option) *Cache {
	c := &Cache{
		store:           store,
		clock:           time.Now,
		logger:          zap.NewNop(),
		exchangeTimeout: DefaultExchangeTimeout,
		sources:         make(map[shipping.CarrierID]registration),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClampSafetyMargin returns margin bounded to [MinSafetyMargin, MaxSafetyMargin].
// Zero selects DefaultSafetyMargin.
func ClampSafetyMargin(margin time.Duration) time.Duration {
	switch {
	case margin == 0:
		return DefaultSafetyMargin
	case margin < MinSafetyMargin:
		return MinSafetyMargin
	case margin > MaxSafetyMargin:
		return MaxSafetyMargin
	default:
		return margin
	}
}

// Register installs the exchange used to obtain tokens for carrier.
func (c *Cache) Register(carrier shipping.CarrierID, source shipping.TokenSource, margin time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[carrier] = registration{source: source, margin: ClampSafetyMargin(margin)}
}

// SafetyMargin returns the margin registered for carrier.
func (c *Cache) SafetyMargin(carrier shipping.CarrierID) time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sources[carrier].margin
}

// GetToken returns a token that stays valid for at least the carrier's safety
// margin, exchanging credentials when the cached one is missing or too close
// to expiry. Exchange failures are returned as *shipping.AuthError.
func (c *Cache) GetToken(ctx context.Context, carrier shipping.CarrierID) (string, error) {
	c.mu.RLock()
	reg, ok := c.sources[carrier]
	c.mu.RUnlock()
	if !ok {
		return "", shipping.NewAuthError(carrier, ErrSourceNotRegistered)
	}

	if tok, ok := c.cached(ctx, carrier, reg.margin); ok {
		return tok.Token, nil
	}

	v, err, shared := c.group.Do(string(carrier), func() (any, error) {
		// Another flight may have stored a fresh token while we waited.
		if tok, ok := c.cached(ctx, carrier, reg.margin); ok {
			return tok, nil
		}
		return c.exchange(ctx, carrier, reg)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.Debug("shared in-flight token exchange", zap.String("carrier", string(carrier)))
	}
	return v.(shipping.CredentialToken).Token, nil
}

// Invalidate drops the cached token for carrier so the next GetToken exchanges again.
func (c *Cache) Invalidate(ctx context.Context, carrier shipping.CarrierID) {
	if err := c.store.Delete(ctx, carrier); err != nil {
		c.logger.Warn("failed to invalidate token",
			zap.String("carrier", string(carrier)),
			zap.Error(err),
		)
	}
}

func (c *Cache) cached(ctx context.Context, carrier shipping.CarrierID, margin time.Duration) (shipping.CredentialToken, bool) {
	tok, ok, err := c.store.Get(ctx, carrier)
	if err != nil {
		c.logger.Warn("token store read failed, exchanging credentials",
			zap.String("carrier", string(carrier)),
			zap.Error(err),
		)
		return shipping.CredentialToken{}, false
	}
	if !ok || !tok.ValidAt(c.clock(), margin) {
		return shipping.CredentialToken{}, false
	}
	return tok, true
}

func (c *Cache) exchange(ctx context.Context, carrier shipping.CarrierID, reg registration) (shipping.CredentialToken, error) {
	// Shared by every waiting caller: detach from the initiating caller's cancellation.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.exchangeTimeout)
	defer cancel()

	tok, err := reg.source.FetchToken(fetchCtx)
	if err == nil && tok.Token == "" {
		err = ErrEmptyToken
	}
	if c.recorder != nil {
		c.recorder.RecordTokenRefresh(ctx, carrier, err)
	}
	if err != nil {
		c.logger.Warn("credential exchange failed",
			zap.String("carrier", string(carrier)),
			zap.Error(err),
		)
		var authErr *shipping.AuthError
		if errors.As(err, &authErr) {
			return shipping.CredentialToken{}, err
		}
		return shipping.CredentialToken{}, shipping.NewAuthError(carrier, err)
	}
	tok.CarrierID = carrier

	now := c.clock()
	ttl := tok.ExpiresAt.Sub(now)
	if ttl <= reg.margin {
		c.logger.Warn("token lifetime shorter than safety margin",
			zap.String("carrier", string(carrier)),
			zap.Duration("lifetime", ttl),
			zap.Duration("margin", reg.margin),
		)
	}
	if ttl > 0 {
		if err := c.store.Set(fetchCtx, tok, ttl); err != nil {
			c.logger.Warn("failed to store token",
				zap.String("carrier", string(carrier)),
				zap.Error(err),
			)
		}
	}

	c.logger.Info("credential exchanged",
		zap.String("carrier", string(carrier)),
		zap.Time("expires_at", tok.ExpiresAt),
	)
	return tok, nil
}

var _ shipping.TokenProvider = (*Cache)(nil)
