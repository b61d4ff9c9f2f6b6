package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
	"github.com/redis/go-redis/v9"
)

const defaultTokenKeyPrefix = "shipping:carrier-token:"

// RedisTokenStore implements TokenStore using Redis
// Tokens are shared by every service instance pointed at the same Redis
type RedisTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisTokenStore creates a new Redis-based token store
func NewRedisTokenStore(cfg RedisConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisTokenStore{
		client:    client,
		keyPrefix: defaultTokenKeyPrefix,
	}, nil
}

// NewRedisTokenStoreWithClient creates a store with an existing Redis client
// This is useful for testing or when sharing a client across components
func NewRedisTokenStoreWithClient(client *redis.Client, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = defaultTokenKeyPrefix
	}
	return &RedisTokenStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisTokenStore) key(carrier shipping.CarrierID) string {
	return s.keyPrefix + string(carrier)
}

// Get returns the stored token for carrier
func (s *RedisTokenStore) Get(ctx context.Context, carrier shipping.CarrierID) (shipping.CredentialToken, bool, error) {
	data, err := s.client.Get(ctx, s.key(carrier)).Bytes()
	if errors.Is(err, redis.Nil) {
		return shipping.CredentialToken{}, false, nil
	}
	if err != nil {
		return shipping.CredentialToken{}, false, fmt.Errorf("failed to read token: %w", err)
	}

	var token shipping.CredentialToken
	if err := json.Unmarshal(data, &token); err != nil {
		return shipping.CredentialToken{}, false, fmt.Errorf("failed to decode token: %w", err)
	}
	return token, true, nil
}

// Set stores the token with a TTL so Redis evicts it at expiry
func (s *RedisTokenStore) Set(ctx context.Context, token shipping.CredentialToken, ttl time.Duration) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token.CarrierID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Delete removes the token for carrier
func (s *RedisTokenStore) Delete(ctx context.Context, carrier shipping.CarrierID) error {
	if err := s.client.Del(ctx, s.key(carrier)).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection for health probes
func (s *RedisTokenStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure RedisTokenStore implements TokenStore
var _ shipping.TokenStore = (*RedisTokenStore)(nil)
