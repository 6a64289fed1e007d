package hold

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimiter throttles the hold coordinator's operator-facing HTTP
// surface. Unlike internal/controller/middleware/ratelimit.go, holds
// have no tenant concept, so a single process-wide limiter is enough --
// this just protects against a monitoring script or fat-fingered script
// hammering /list or /release-all.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter allowing rps requests per second with
// the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Middleware wraps next, rejecting requests once the limiter's budget
// is exhausted.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
