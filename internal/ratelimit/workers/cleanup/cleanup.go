package cleanup

import (
	"context"
	"log/slog"
	"time"

	"phonebook/internal/ratelimit/metrics"
)

// CleanupResult contains the results of a cleanup run.
type CleanupResult struct {
	Purged    int           // Number of expired buckets removed
	Remaining int           // Buckets still held after the run
	Duration  time.Duration // Time taken for cleanup run
}

// BucketStore is the part of the in-memory window store the worker needs.
type BucketStore interface {
	PurgeExpired(ctx context.Context) (int, error)
	Len() int
}

type Option func(*BucketCleanupService)

func WithLogger(logger *slog.Logger) Option {
	return func(s *BucketCleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithInterval(interval time.Duration) Option {
	return func(s *BucketCleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BucketCleanupService) {
		s.metrics = m
	}
}

// BucketCleanupService periodically drops fixed-window buckets whose window
// has ended so the in-memory limiter does not grow with every client seen.
type BucketCleanupService struct {
	store    BucketStore
	logger   *slog.Logger
	interval time.Duration
	metrics  *metrics.Metrics
}

func New(store BucketStore, opts ...Option) *BucketCleanupService {
	service := &BucketCleanupService{
		store:    store,
		logger:   slog.Default(),
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Interval reports how often Start runs a cleanup pass.
func (s *BucketCleanupService) Interval() time.Duration {
	return s.interval
}

func (s *BucketCleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			startTime := time.Now()
			res, err := s.RunOnce(ctx)
			duration := time.Since(startTime)

			if err != nil {
				s.logger.Error("ratelimit_cleanup_failed",
					"error", err,
					"duration_ms", duration.Milliseconds(),
				)
				if s.metrics != nil {
					s.metrics.IncrementCleanupRuns("error")
					s.metrics.ObserveCleanupDuration(duration.Seconds())
				}
				continue
			}

			res.Duration = duration
			s.logger.Debug("ratelimit_cleanup_completed",
				"buckets_purged", res.Purged,
				"buckets_remaining", res.Remaining,
				"duration_ms", duration.Milliseconds(),
			)

			if s.metrics != nil {
				s.metrics.IncrementCleanupPurged(res.Purged)
				s.metrics.IncrementCleanupRuns("success")
				s.metrics.ObserveCleanupDuration(duration.Seconds())
				s.metrics.SetBuckets(res.Remaining)
			}

		case <-ctx.Done():
			s.logger.Info("ratelimit cleanup worker stopping", "reason", ctx.Err())
			return ctx.Err()
		}
	}
}

// RunOnce executes a single cleanup run. Logging is handled by the caller (Start).
func (s *BucketCleanupService) RunOnce(ctx context.Context) (*CleanupResult, error) {
	purged, err := s.store.PurgeExpired(ctx)
	if err != nil {
		return nil, err
	}
	return &CleanupResult{Purged: purged, Remaining: s.store.Len()}, nil
}
