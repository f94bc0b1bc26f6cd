package window

import (
	"context"
	"sync"
	"time"
)

// InMemoryWindowStore keeps fixed-window counters in a map. Used when Redis
// is not configured and in tests. Expired buckets are dropped lazily and by
// PurgeExpired.
type InMemoryWindowStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	count     int
	expiresAt time.Time
}

// NewInMemoryWindowStore creates an empty in-memory counter store.
func NewInMemoryWindowStore() *InMemoryWindowStore {
	return &InMemoryWindowStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow admits the request and increments the counter if it is below limit.
// Rejected requests are not counted. Returns the count after the decision.
func (s *InMemoryWindowStore) Allow(ctx context.Context, key string, limit int, ttl time.Duration) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.expiresAt) {
		b = &bucket{expiresAt: now.Add(ttl)}
		s.buckets[key] = b
	}

	if b.count >= limit {
		return b.count, false, nil
	}
	b.count++
	return b.count, true, nil
}

// PurgeExpired drops every bucket whose window has ended and returns how
// many were removed.
func (s *InMemoryWindowStore) PurgeExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for key, b := range s.buckets {
		if !now.Before(b.expiresAt) {
			delete(s.buckets, key)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of live and not yet purged buckets.
func (s *InMemoryWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
