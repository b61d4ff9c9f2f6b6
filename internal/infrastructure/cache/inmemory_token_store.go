package cache

import (
	"context"
	"sync"
	"time"

	"github.com/forcedowels/backend/internal/domain/shipping"
)

// entry represents a stored token with expiration
type entry struct {
	token     shipping.CredentialToken
	expiresAt time.Time
}

// InMemoryTokenStore implements TokenStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryTokenStore struct {
	mu        sync.RWMutex
	entries   map[shipping.CarrierID]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryTokenStore creates a new in-memory token store
// It starts a background goroutine to clean up expired entries
func NewInMemoryTokenStore() *InMemoryTokenStore {
	store := &InMemoryTokenStore{
		entries:  make(map[shipping.CarrierID]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Get returns the stored token for carrier if it has not expired
func (s *InMemoryTokenStore) Get(ctx context.Context, carrier shipping.CarrierID) (shipping.CredentialToken, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[carrier]
	if !exists || time.Now().After(e.expiresAt) {
		return shipping.CredentialToken{}, false, nil
	}
	return e.token, true, nil
}

// Set stores the token for ttl
func (s *InMemoryTokenStore) Set(ctx context.Context, token shipping.CredentialToken, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[token.CarrierID] = entry{
		token:     token,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes the token for carrier
func (s *InMemoryTokenStore) Delete(ctx context.Context, carrier shipping.CarrierID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, carrier)
	return nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryTokenStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryTokenStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryTokenStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for carrier, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, carrier)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryTokenStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryTokenStore implements TokenStore
var _ shipping.TokenStore = (*InMemoryTokenStore)(nil)
