package server

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	apperrors "trade-journal/internal/errors"
)

// RateLimitMiddleware rejects requests beyond a shared token bucket with 429.
// Health checks are never limited.
func RateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			hlog.FromRequest(r).Warn().Str("path", r.URL.Path).Msg("request rate limited")
			w.Header().Set("Retry-After", "1")
			Error(w, apperrors.ErrRateLimited)
		})
	}
}

// newLimiter returns nil when limiting is disabled.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
