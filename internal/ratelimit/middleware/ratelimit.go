package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"phonebook/internal/ratelimit/metrics"
	"phonebook/internal/ratelimit/models"
	"phonebook/pkg/platform/httputil"
	"phonebook/pkg/requestcontext"
)

type RateLimiter interface {
	Check(ctx context.Context, identifier string, limit int, window time.Duration) *models.RateLimitResult
}

// Middleware applies one fixed-window policy per scope, keyed by client IP.
type Middleware struct {
	limiter RateLimiter
	policy  models.Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the middleware.
type Option func(*Middleware)

// WithMetrics records allowed and rejected decisions per scope.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

func New(limiter RateLimiter, policy models.Policy, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		policy:  policy,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RateLimit limits every request passing through it in scope.
func (m *Middleware) RateLimit(scope models.Scope) func(http.Handler) http.Handler {
	return m.RateLimitWhen(scope, nil)
}

// RateLimitWhen limits only requests for which applies returns true; others
// pass through uncounted. A nil predicate applies to every request.
func (m *Middleware) RateLimitWhen(scope models.Scope, applies func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if applies != nil && !applies(r) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			identifier := scope.Identifier(requestcontext.ClientIP(ctx))
			result := m.limiter.Check(ctx, identifier, m.policy.Limit, m.policy.Window)

			addRateLimitHeaders(w, result)

			if !result.Allowed {
				if m.metrics != nil {
					m.metrics.IncrementRejected(scope.String())
				}
				writeRateLimitExceeded(w, result)
				return
			}

			if m.metrics != nil {
				m.metrics.IncrementAllowed(scope.String())
			}
			next.ServeHTTP(w, r)
		})
	}
}

// addRateLimitHeaders adds X-RateLimit-* headers to the response.
func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests from this IP address. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
