package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the window counter and returns
// {count, ttl_ms}. INCR-then-compare must be one atomic step, so the
// whole sequence runs as a Lua script.
var fixedWindowScript = redis.NewScript(`
-- KEYS[1] = counter key
-- ARGV[1] = window_ms (int)
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  -- Key existed without TTL (e.g. after a partial failure); restart the window.
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisLimiter shares fixed-window counters across gateway instances.
// Redis expiry implements the window reset: the counter key lives
// exactly one window.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb *redis.Client, prefix string) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("ratelimit: redis client is required")
	}
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisLimiter{rdb: rdb, prefix: prefix, now: time.Now}, nil
}

func (l *RedisLimiter) Check(ctx context.Context, key string, cfg Config) (Result, error) {
	vals, err := fixedWindowScript.Run(ctx, l.rdb, []string{l.prefix + ":" + key}, cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 2 {
		return Result{}, errors.New("ratelimit: unexpected script result")
	}

	count := int(vals[0])
	ttl := time.Duration(vals[1]) * time.Millisecond

	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= cfg.Limit,
		Limit:     cfg.Limit,
		Remaining: remaining,
		ResetAt:   l.now().Add(ttl),
	}, nil
}
