// file: internal/middleware/rate_limiter.go
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"platewise/internal/cache"
	"platewise/internal/contextutils"
	"platewise/internal/response"
	"platewise/internal/services"

	"go.uber.org/zap"
)

// RateLimitConfig bounds request rates per client
type RateLimitConfig struct {
	// Requests allowed per window
	Limit int
	// Window is the fixed counting window
	Window time.Duration
	// Scope names the limiter for the cache key and headers
	Scope string
}

// DefaultRateLimitConfig allows 120 requests per minute
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Limit:  120,
		Window: time.Minute,
		Scope:  "api",
	}
}

// RateLimiter counts requests per client in the shared cache so limits
// hold across replicas when the cache is Redis
type RateLimiter struct {
	cache  cache.Cache
	config *RateLimitConfig
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(c cache.Cache, config *RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		cache:  c,
		config: config,
		logger: logger,
	}
}

// Limit enforces the configured rate per client key
func (rl *RateLimiter) Limit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rl.clientKey(r)

			count, err := rl.cache.Increment(r.Context(), key, 1)
			if err != nil {
				// A broken limiter must not take the API down.
				rl.logger.Warn("Rate limit counter failed, allowing request",
					zap.Error(err), zap.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			remaining := rl.config.Limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > rl.config.Limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.config.Window.Seconds())))
				response.QuickError(w, r,
					services.NewRateLimitError("rate limit exceeded", map[string]interface{}{
					"retry_after_seconds": int(rl.config.Window.Seconds()),
				}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey buckets by authenticated user when possible, client IP
// otherwise. The window boundary is baked into the key so counters
// expire naturally with the cache TTL.
func (rl *RateLimiter) clientKey(r *http.Request) string {
	window := time.Now().Unix() / int64(rl.config.Window.Seconds())

	if userID := contextutils.GetUserID(r.Context()); userID != 0 {
		return fmt.Sprintf("ratelimit:%s:user:%d:%d", rl.config.Scope, userID, window)
	}
	return fmt.Sprintf("ratelimit:%s:ip:%s:%d", rl.config.Scope, clientIP(r), window)
}
