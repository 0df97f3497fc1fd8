package middleware

import (
	"net/http"
	"strconv"

	"github.com/rensmac/chat-gateway/internal/api/response"
	"github.com/rensmac/chat-gateway/internal/redis"
	"github.com/rs/zerolog/log"
)

// RateLimitMiddleware limits requests per client IP
type RateLimitMiddleware struct {
	limiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(limiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit rejects requests over the per-IP budget with 429
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quota, err := m.limiter.Allow(r.Context(), r.RemoteAddr)
		if err != nil {
			// Rate limiting is best effort; let the request through
			log.Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(quota.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(quota.ResetAt.Unix(), 10))

		if !quota.Allowed {
			response.TooManyRequests(w, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
