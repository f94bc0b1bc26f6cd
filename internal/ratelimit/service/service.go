// Package service implements fixed-window admission control.
//
// Usage:
//
//	svc := service.New(window.NewInMemoryWindowStore(), service.WithLogger(logger))
//	if !svc.IsAllowed(ctx, clientIP, 100, time.Hour) {
//	    // Return 429 Too Many Requests
//	}
//
// A request is admitted while the counter of the current window is below
// the limit, and only admitted requests are counted. Windows are aligned to
// multiples of their length, so a counter resets at each boundary.
package service

import (
	"context"
	"log/slog"
	"time"

	"phonebook/internal/platform/privacy"
	"phonebook/internal/ratelimit/metrics"
	"phonebook/internal/ratelimit/models"
	"phonebook/pkg/requestcontext"
)

// WindowStore holds one counter per window key.
type WindowStore interface {
	// Allow increments key if its count is below limit, creating it with ttl
	// when absent. It returns the count after the decision.
	Allow(ctx context.Context, key string, limit int, ttl time.Duration) (count int, allowed bool, err error)
}

// Service admits or rejects requests per identifier. Safe for concurrent use.
type Service struct {
	store   WindowStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder for observability.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds a limiter over store.
func New(store WindowStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsAllowed reports whether the request identified by identifier may
// proceed, counting it when it does.
func (s *Service) IsAllowed(ctx context.Context, identifier string, limit int, window time.Duration) bool {
	return s.Check(ctx, identifier, limit, window).Allowed
}

// Check is IsAllowed with the full decision for response headers. The
// current time comes from the request context. If the store fails the
// request is admitted and the failure is logged.
func (s *Service) Check(ctx context.Context, identifier string, limit int, window time.Duration) *models.RateLimitResult {
	now := requestcontext.Now(ctx)
	key := models.NewWindowKey(identifier, now, window)
	result := &models.RateLimitResult{
		Limit:   limit,
		ResetAt: key.ResetAt(),
	}

	if limit <= 0 {
		result.RetryAfter = retryAfter(key, now)
		return result
	}

	count, allowed, err := s.store.Allow(ctx, key.String(), limit, key.TTL(now))
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreErrors()
		}
		s.logger.ErrorContext(ctx, "rate limit store failed, admitting request",
			"error", err,
			"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			"request_id", requestcontext.RequestID(ctx),
		)
		result.Allowed = true
		result.Remaining = limit
		return result
	}

	result.Allowed = allowed
	result.Remaining = max(limit-count, 0)
	if !allowed {
		result.RetryAfter = retryAfter(key, now)
		s.logger.WarnContext(ctx, "rate limit exceeded",
			"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
			"limit", limit,
			"window_seconds", int(window.Seconds()),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return result
}

func retryAfter(key models.WindowKey, now time.Time) int {
	secs := int(key.ResetAt().Sub(now).Seconds())
	return max(secs, 1)
}
