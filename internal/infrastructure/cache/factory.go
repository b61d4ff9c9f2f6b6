package cache

import (
	"fmt"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/forcedowels/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// TokenStoreFactory creates token stores based on configuration
type TokenStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// TokenStoreFactoryOption is a functional option for configuring the factory
type TokenStoreFactoryOption func(*TokenStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) TokenStoreFactoryOption {
	return func(f *TokenStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewTokenStoreFactory creates a new factory
func NewTokenStoreFactory(cfg config.RedisConfig, opts ...TokenStoreFactoryOption) *TokenStoreFactory {
	f := &TokenStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisStore creates a Redis-based token store
func (f *TokenStoreFactory) CreateRedisStore() (shipping.TokenStore, error) {
	store, err := NewRedisTokenStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis token store: %w", err)
	}

	return store, nil
}

// CreateInMemoryStore creates an in-memory token store
// Each process instance then performs its own credential exchanges
func (f *TokenStoreFactory) CreateInMemoryStore() shipping.TokenStore {
	return NewInMemoryTokenStore()
}

// CreateStore returns the Redis store when Redis is enabled and reachable,
// otherwise an in-memory store if fallback is allowed
func (f *TokenStoreFactory) CreateStore() (shipping.TokenStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory token store")
		return f.CreateInMemoryStore(), nil
	}

	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("using Redis token store", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for token store but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory token store. "+
		"Each instance will exchange carrier credentials independently.",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
