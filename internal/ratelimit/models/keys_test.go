package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewWindowKey(t *testing.T) {
	window := time.Hour

	t.Run("ceil of now over window", func(t *testing.T) {
		now := time.Unix(7201, 0) // just into the third hour
		key := NewWindowKey("203.0.113.7", now, window)

		assert.Equal(t, "203.0.113.7_3", key.String())
		assert.Equal(t, time.Unix(10800, 0).UTC(), key.ResetAt())
		assert.Equal(t, 3599*time.Second, key.TTL(now))
	})

	t.Run("boundary second belongs to the ending window", func(t *testing.T) {
		key := NewWindowKey("id", time.Unix(7200, 0), window)
		assert.Equal(t, "id_2", key.String())
		assert.Equal(t, time.Second, key.TTL(time.Unix(7200, 0)))
	})

	t.Run("next window gets a new key", func(t *testing.T) {
		a := NewWindowKey("id", time.Unix(7200, 0), window)
		b := NewWindowKey("id", time.Unix(7201, 0), window)
		assert.NotEqual(t, a.String(), b.String())
	})

	t.Run("sub-second window rounds up to one second", func(t *testing.T) {
		key := NewWindowKey("id", time.Unix(10, 0), time.Millisecond)
		assert.Equal(t, "id_10", key.String())
	})
}

func TestScopeIdentifier(t *testing.T) {
	assert.Equal(t, "203.0.113.7", ScopeSearch.Identifier("203.0.113.7"))
	assert.Equal(t, "203.0.113.7_add", ScopeAdd.Identifier("203.0.113.7"))
}
