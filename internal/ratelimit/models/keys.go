package models

import (
	"math"
	"strconv"
	"time"
)

// WindowKey is a fixed-window bucket key: the identifier joined to the index
// of the window containing now. Window n covers the seconds ((n-1)*w, n*w],
// so the counter resets when the index rolls over.
type WindowKey struct {
	identifier string
	index      int64
	window     time.Duration
}

// NewWindowKey builds the key for identifier at now. Windows shorter than a
// second are treated as one second.
func NewWindowKey(identifier string, now time.Time, window time.Duration) WindowKey {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	index := int64(math.Ceil(float64(now.Unix()) / float64(secs)))
	return WindowKey{
		identifier: identifier,
		index:      index,
		window:     time.Duration(secs) * time.Second,
	}
}

// String returns the storage key, "identifier_index". The index has no
// underscore, so the last underscore always separates the two parts.
func (k WindowKey) String() string {
	return k.identifier + "_" + strconv.FormatInt(k.index, 10)
}

// ResetAt is the instant the window ends.
func (k WindowKey) ResetAt() time.Time {
	return time.Unix(k.index*int64(k.window/time.Second), 0).UTC()
}

// TTL is how long the bucket must outlive now.
func (k WindowKey) TTL(now time.Time) time.Duration {
	ttl := k.ResetAt().Sub(now)
	if ttl < time.Second {
		return time.Second
	}
	return ttl
}
