package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterEnforcesCeiling(t *testing.T) {
	limiter := NewMemoryLimiter(map[string]Policy{
		ClassLogin: {Limit: 3, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allow(ctx, "alice@example.com", ClassLogin)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := limiter.Allow(ctx, "alice@example.com", ClassLogin)
	require.NoError(t, err)
	assert.False(t, ok)

	// a different identity has its own counter
	ok, err = limiter.Allow(ctx, "bob@example.com", ClassLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLimiterUnknownClassAllowed(t *testing.T) {
	limiter := NewMemoryLimiter(map[string]Policy{})

	for i := 0; i < 100; i++ {
		ok, err := limiter.Allow(context.Background(), "anyone", "unthrottled")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestMemoryLimiterClassesAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(DefaultPolicies())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := limiter.Allow(ctx, "alice@example.com", ClassMFAVerify)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "alice@example.com", ClassMFAVerify)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = limiter.Allow(ctx, "alice@example.com", ClassLogin)
	require.NoError(t, err)
	assert.True(t, ok)
}
