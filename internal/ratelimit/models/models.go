package models

import (
	"time"
)

// Scope names the operation a limit applies to. Each scope counts in its own
// buckets, so searching never uses up the add allowance.
type Scope string

const (
	ScopeSearch Scope = "search"
	ScopeAdd    Scope = "add"
)

// String returns the scope name.
func (s Scope) String() string {
	return string(s)
}

// Identifier derives the limiter identifier for a client in this scope. The
// search scope uses the bare client address; other scopes append a suffix.
func (s Scope) Identifier(clientIP string) string {
	if s == ScopeSearch || s == "" {
		return clientIP
	}
	return clientIP + "_" + string(s)
}

// Policy is a fixed-window limit: at most Limit requests per Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

// RateLimitResult describes one admission decision.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}
