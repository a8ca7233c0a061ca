package api

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// RequestLimiter is the per-user limiter consulted before each generation
// request. Implemented by app.RedisRateLimiter.
type RequestLimiter interface {
	Allow(ctx context.Context, subject string, limit int, window time.Duration) (bool, time.Duration, error)
}

// RateLimitMiddleware throttles authenticated users to limit requests per
// window. Limiter errors fail open; the entitlement gate downstream is the
// actual correctness boundary, this only shields the providers from bursts.
func RateLimitMiddleware(limiter RequestLimiter, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := UserFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter, err := limiter.Allow(r.Context(), userID, limit, window)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
				http.Error(w, "Too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterHeader(retryAfter time.Duration) string {
	return strconv.Itoa(int(math.Max(1, math.Ceil(retryAfter.Seconds()))))
}
