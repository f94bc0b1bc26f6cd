package window

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryAllowCountsOnlyAdmittedRequests(t *testing.T) {
	s := NewInMemoryWindowStore()
	ctx := context.Background()

	count, allowed, err := s.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, count)

	count, allowed, _ = s.Allow(ctx, "k", 2, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 2, count)

	for range 3 {
		count, allowed, _ = s.Allow(ctx, "k", 2, time.Minute)
		assert.False(t, allowed)
		assert.Equal(t, 2, count)
	}

	_, allowed, _ = s.Allow(ctx, "other", 2, time.Minute)
	assert.True(t, allowed, "buckets are independent")
}

func TestInMemoryBucketExpires(t *testing.T) {
	s := NewInMemoryWindowStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, allowed, _ := s.Allow(ctx, "k", 1, time.Minute)
	require.True(t, allowed)
	_, allowed, _ = s.Allow(ctx, "k", 1, time.Minute)
	require.False(t, allowed)

	now = now.Add(time.Minute)
	_, allowed, _ = s.Allow(ctx, "k", 1, time.Minute)
	assert.True(t, allowed)
}

func TestInMemoryPurgeExpired(t *testing.T) {
	s := NewInMemoryWindowStore()
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_, _, _ = s.Allow(ctx, "short", 5, time.Second)
	_, _, _ = s.Allow(ctx, "long", 5, time.Hour)
	require.Equal(t, 2, s.Len())

	now = now.Add(2 * time.Second)
	purged, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
	assert.Equal(t, 1, s.Len())
}

func TestInMemoryConcurrentAllowNeverExceedsLimit(t *testing.T) {
	s := NewInMemoryWindowStore()
	const limit = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := s.Allow(context.Background(), "k", limit, time.Minute); ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, admitted)
}
