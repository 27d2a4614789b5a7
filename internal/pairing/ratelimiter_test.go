package pairing

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	s := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: s.Addr()})
}

func TestRateLimiter_UnderLimit(t *testing.T) {
	rdb := setupMiniredis(t)
	rl := NewRateLimiter(rdb)
	ctx := context.Background()

	allowed, err := rl.Allow(ctx, "bob@example.com", 10)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimiter_AtLimit(t *testing.T) {
	rdb := setupMiniredis(t)
	rl := NewRateLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := rl.Allow(ctx, "bob@example.com", 5)
		require.NoError(t, err)
		assert.True(t, allowed, "attempt %d should be allowed", i+1)
	}

	allowed, err := rl.Allow(ctx, "bob@example.com", 5)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_DifferentSendersIndependent(t *testing.T) {
	rdb := setupMiniredis(t)
	rl := NewRateLimiter(rdb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "alice@example.com", 3)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "alice@example.com", 3)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = rl.Allow(ctx, "bob@example.com", 3)
	require.NoError(t, err)
	assert.True(t, allowed, "a different bare JID should have its own window")
}
