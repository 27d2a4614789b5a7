package pairing

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	rateLimitKeyPrefix = "pairing:minute:"
	windowDuration      = 60 * time.Second
	keyTTL              = 90 * time.Second
)

// RateLimiter bounds how many pairing challenges a single bare JID can
// trigger per minute, a Redis sorted-set sliding window adapted from
// internal/governance/quota.RateLimiter: that one keys on user UUID for
// request quota, this one keys on bare JID to blunt a hostile sender
// re-sending DMs to force repeated upsertPairingRequest calls (the store
// upsert itself is idempotent, but an operator may still want the attempt
// volume bounded).
type RateLimiter struct {
	rdb redis.Cmdable
}

// NewRateLimiter wraps a Redis client.
func NewRateLimiter(rdb redis.Cmdable) *RateLimiter {
	return &RateLimiter{rdb: rdb}
}

// Allow reports whether bareJID is still under maxPerMinute challenge
// attempts, incrementing its counter if so.
func (rl *RateLimiter) Allow(ctx context.Context, bareJID string, maxPerMinute int) (bool, error) {
	key := rateLimitKeyPrefix + bareJID
	now := time.Now()
	nowMs := float64(now.UnixMilli())
	windowStart := float64(now.Add(-windowDuration).UnixMilli())

	pipe := rl.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatFloat(windowStart, 'f', 0, 64))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline (clean+count): %w", err)
	}

	if countCmd.Val() >= int64(maxPerMinute) {
		return false, nil
	}

	pipe2 := rl.rdb.Pipeline()
	member := fmt.Sprintf("%d:%d", now.UnixNano(), countCmd.Val())
	pipe2.ZAdd(ctx, key, redis.Z{Score: nowMs, Member: member})
	pipe2.Expire(ctx, key, keyTTL)
	if _, err := pipe2.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limiter pipeline (add): %w", err)
	}
	return true, nil
}
