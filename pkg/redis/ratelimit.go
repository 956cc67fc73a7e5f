package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter implements sliding window rate limiting using Redis. Used to
// keep the market data source from throttling the tracker's quote fetches
// when several processes share one API quota.
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig defines rate limit parameters.
type RateLimitConfig struct {
	Key    string        // Unique identifier (e.g., "marketdata")
	Limit  int           // Maximum requests allowed
	Window time.Duration // Time window
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
	}
}

// Allow checks if a request is allowed under the rate limit.
// Returns (allowed, remaining, error). When Redis is disabled all requests
// are allowed; the local token bucket in httputil still applies.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()
	windowStart := now - cfg.Window.Milliseconds()

	rdb := r.client.Redis()

	// Lua script keeps remove-count-add atomic.
	script := redis.NewScript(`
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local limit = tonumber(ARGV[3])
		local window_ms = tonumber(ARGV[4])

		redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

		local count = redis.call('ZCARD', key)
		if count >= limit then
			return {0, limit - count}
		end

		redis.call('ZADD', key, now, now .. '-' .. math.random(100000))
		redis.call('PEXPIRE', key, window_ms)
		return {1, limit - count - 1}
	`)

	res, err := script.Run(ctx, rdb, []string{key},
		now, windowStart, cfg.Limit, cfg.Window.Milliseconds()).Slice()
	if err != nil {
		// Fail open: a Redis hiccup should not block the tracker.
		return true, 0, fmt.Errorf("rate limit script failed: %w", err)
	}

	allowed := len(res) > 0 && res[0].(int64) == 1
	remaining := 0
	if len(res) > 1 {
		remaining = int(res[1].(int64))
	}
	return allowed, remaining, nil
}
