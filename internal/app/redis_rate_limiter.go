package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// promoRateLimitScript counts a hit into the current fixed window and returns
// the window's remaining lifetime, starting the window on the first hit.
var promoRateLimitScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {hits, ttl}
`)

// RedisPromoRateLimiter is a Redis-backed fixed-window limiter guarding the
// promo validation preview against code guessing. Keys are scoped per
// customer, so one caller cannot exhaust another's budget.
type RedisPromoRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPromoRateLimiter(client redis.UniversalClient, prefix string) *RedisPromoRateLimiter {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if p == "" {
		p = "hirafic:rate_limit"
	}
	return &RedisPromoRateLimiter{client: client, prefix: p}
}

// ConsumeRateLimit records one attempt for the subject within the scope and
// returns the attempt count in the current window. A limiter with no client,
// or degenerate parameters, counts nothing and allows the request.
func (r *RedisPromoRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}
	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	vals, err := promoRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script reply: %v", vals)
	}

	hits, ttlMs := vals[0], vals[1]
	if ttlMs < 0 {
		ttlMs = windowMs
	}
	retryAfter := int((ttlMs + 999) / 1000)
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(hits), retryAfter, nil
}
