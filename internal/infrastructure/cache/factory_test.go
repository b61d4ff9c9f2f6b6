package cache

import (
	"testing"

	"github.com/forcedowels/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTokenStoreFactory_CreateStore(t *testing.T) {
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis disabled uses in-memory store", func(t *testing.T) {
		f := NewTokenStoreFactory(config.RedisConfig{}, WithLogger(zaptest.NewLogger(t)))

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryTokenStore{}, store)
	})

	t.Run("falls back when redis is unreachable", func(t *testing.T) {
		f := NewTokenStoreFactory(unreachable, WithLogger(zaptest.NewLogger(t)))

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &InMemoryTokenStore{}, store)
	})

	t.Run("errors when fallback is disabled", func(t *testing.T) {
		f := NewTokenStoreFactory(unreachable, WithInMemoryFallback(false))

		_, err := f.CreateStore()
		assert.Error(t, err)
	})
}
