package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisRateLimiter implements distributed per-user request limiting for the
// generation endpoints. The INCR+PEXPIRE pair runs as one script so the
// window is created atomically with its first hit.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "aihub:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

// Allow consumes one unit of the subject's window. It returns whether the
// request may proceed and, when denied, how long the caller should wait.
// A nil limiter or client disables limiting entirely; Redis errors also fail
// open, since the entitlement gate is the actual correctness boundary.
func (r *RedisRateLimiter) Allow(ctx context.Context, subject string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return true, 0, nil
	}

	normalizedSubject := strings.TrimSpace(subject)
	if normalizedSubject == "" {
		return true, 0, nil
	}

	key := fmt.Sprintf("%s:%s", r.prefix, normalizedSubject)
	res, err := rateLimitScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Slice()
	if err != nil {
		return true, 0, fmt.Errorf("rate limit script: %w", err)
	}
	if len(res) != 2 {
		return true, 0, fmt.Errorf("rate limit script: unexpected result %v", res)
	}

	count, _ := res[0].(int64)
	ttlMillis, _ := res[1].(int64)
	if count <= int64(limit) {
		return true, 0, nil
	}

	retryAfter = time.Duration(math.Max(float64(ttlMillis), 0)) * time.Millisecond
	return false, retryAfter, nil
}
