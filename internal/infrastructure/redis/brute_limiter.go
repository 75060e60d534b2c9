package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/baechuer/silverback/internal/ratelimit"
)

// BruteLimiter stores brute-force counters in a redis hash per key so that
// every API instance shares them. The backoff decision runs inside a Lua
// script, making check-and-record atomic.
type BruteLimiter struct {
	rdb    *goredis.Client
	prefix string
	policy ratelimit.Policy
	now    func() time.Time
}

func NewBruteLimiter(c *Client, prefix string, p ratelimit.Policy) *BruteLimiter {
	return &BruteLimiter{rdb: c.rdb, prefix: prefix, policy: p, now: time.Now}
}

// KEYS[1] hash key
// ARGV: now_ms, free_retries, min_wait_ms, max_wait_ms, ttl_ms
// returns {allowed, count, next_retry_ms}
var bruteScript = goredis.NewScript(`
local count = tonumber(redis.call("HGET", KEYS[1], "count") or "0")
local last = tonumber(redis.call("HGET", KEYS[1], "last") or "0")
local now = tonumber(ARGV[1])
local free = tonumber(ARGV[2])
local minw = tonumber(ARGV[3])
local maxw = tonumber(ARGV[4])

local n = count + 1
local over = n - free
if over > 0 and last > 0 then
  local wait = minw
  local i = 1
  while i < over and wait < maxw do
    wait = wait * 2
    i = i + 1
  end
  if wait > maxw then
    wait = maxw
  end
  if now < last + wait then
    return {0, count, last + wait}
  end
end

redis.call("HSET", KEYS[1], "count", n, "last", now)
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return {1, n, 0}
`)

func (l *BruteLimiter) Attempt(ctx context.Context, key string) (ratelimit.Decision, error) {
	now := l.now()
	res, err := bruteScript.Run(ctx, l.rdb, []string{l.prefix + key},
		now.UnixMilli(),
		l.policy.FreeRetries,
		l.policy.MinWait.Milliseconds(),
		l.policy.Ceiling().Milliseconds(),
		l.policy.TTL().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.Decision{}, fmt.Errorf("brute limiter eval: %w", err)
	}
	if len(res) != 3 {
		return ratelimit.Decision{}, fmt.Errorf("brute limiter eval: unexpected result %v", res)
	}

	d := ratelimit.Decision{Allowed: res[0] == 1, Count: int(res[1])}
	if !d.Allowed {
		d.NextRetryAt = time.UnixMilli(res[2])
	}
	return d, nil
}

func (l *BruteLimiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("brute limiter reset: %w", err)
	}
	return nil
}
