package window

import (
	"context"
	"log/slog"
	"time"

	"phonebook/pkg/platform/circuit"
)

// Store is the counter contract shared by every window store.
type Store interface {
	Allow(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error)
}

// StateObserver is told when the fallback store takes over (true) or hands
// back (false).
type StateObserver func(degraded bool)

// FallbackWindowStore counts in primary until the breaker trips, then counts
// in fallback. While tripped, primary is probed as the breaker allows and
// probe answers are discarded until the breaker resets. Buckets are not
// copied between stores, so a client may get a fresh budget on switchover.
type FallbackWindowStore struct {
	primary  Store
	fallback Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
	observe  StateObserver
}

// NewFallbackWindowStore wraps primary with a local fallback. A nil logger
// discards transition logs; observe may be nil.
func NewFallbackWindowStore(primary, fallback Store, breaker *circuit.Breaker, logger *slog.Logger, observe StateObserver) *FallbackWindowStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FallbackWindowStore{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   logger,
		observe:  observe,
	}
}

func (s *FallbackWindowStore) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	if !s.breaker.ShouldCall() {
		return s.fallback.Allow(ctx, key, limit, ttl)
	}

	count, allowed, err := s.primary.Allow(ctx, key, limit, ttl)
	if err != nil {
		if s.breaker.Failure() == circuit.Opened {
			s.logger.WarnContext(ctx, "rate limit store degraded, using in-memory fallback",
				"store", s.breaker.Name(),
				"error", err,
			)
			s.notify(true)
		}
		if s.breaker.Tripped() {
			return s.fallback.Allow(ctx, key, limit, ttl)
		}
		return 0, false, err
	}

	if s.breaker.Success() == circuit.Closed {
		s.logger.InfoContext(ctx, "rate limit store recovered", "store", s.breaker.Name())
		s.notify(false)
	}
	if s.breaker.Tripped() {
		return s.fallback.Allow(ctx, key, limit, ttl)
	}
	return count, allowed, nil
}

func (s *FallbackWindowStore) notify(degraded bool) {
	if s.observe != nil {
		s.observe(degraded)
	}
}
