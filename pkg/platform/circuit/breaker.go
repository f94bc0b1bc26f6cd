// Package circuit decides when a flaky dependency should be bypassed in
// favour of a local substitute, and when it may be trusted again.
package circuit

import (
	"sync"
	"time"
)

// Transition is the edge, if any, crossed by the last recorded result.
type Transition int

const (
	NoTransition Transition = iota
	Opened
	Closed
)

// Breaker trips after a run of consecutive failures. While tripped, the
// dependency is probed at most once per probe interval and the breaker
// resets after a run of consecutive successful probes.
type Breaker struct {
	name          string
	tripAfter     int
	resetAfter    int
	probeInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	tripped   bool
	streak    int
	lastProbe time.Time
}

type Option func(*Breaker)

// WithTripAfter sets how many consecutive failures trip the breaker (5).
func WithTripAfter(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.tripAfter = n
		}
	}
}

// WithResetAfter sets how many consecutive successful probes reset it (3).
func WithResetAfter(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.resetAfter = n
		}
	}
}

// WithProbeInterval sets the minimum gap between probes while tripped (1s).
// Zero probes on every call.
func WithProbeInterval(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.probeInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:          name,
		tripAfter:     5,
		resetAfter:    3,
		probeInterval: time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

// Tripped reports whether callers should be using their substitute.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// ShouldCall reports whether the dependency should be called now. It is
// always true while the breaker is not tripped. While tripped it is true once
// per probe interval and claims that probe slot.
func (b *Breaker) ShouldCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		return true
	}
	now := b.now()
	if now.Sub(b.lastProbe) < b.probeInterval {
		return false
	}
	b.lastProbe = now
	return true
}

// Failure records a failed call.
func (b *Breaker) Failure() Transition {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		b.streak = 0
		return NoTransition
	}
	b.streak++
	if b.streak < b.tripAfter {
		return NoTransition
	}
	b.tripped = true
	b.streak = 0
	b.lastProbe = b.now()
	return Opened
}

// Success records a successful call.
func (b *Breaker) Success() Transition {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		b.streak = 0
		return NoTransition
	}
	b.streak++
	if b.streak < b.resetAfter {
		return NoTransition
	}
	b.tripped = false
	b.streak = 0
	return Closed
}
