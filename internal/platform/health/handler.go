// Package health serves the liveness, readiness and status probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"phonebook/pkg/platform/httputil"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Check reports a dependency as healthy by returning nil.
type Check func(ctx context.Context) error

// Stat reports a number for the status page, such as the stored contacts.
type Stat func(ctx context.Context) (int, error)

type named[F any] struct {
	name string
	fn   F
}

// Handler collects probes and serves them. Probes run concurrently, each
// bounded by the probe timeout.
type Handler struct {
	started     time.Time
	environment string
	timeout     time.Duration

	mu     sync.RWMutex
	checks []named[Check]
	stats  []named[Stat]
}

type Option func(*Handler)

// WithProbeTimeout bounds each check and stat call (2s).
func WithProbeTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

func New(environment string, opts ...Option) *Handler {
	h := &Handler{
		started:     time.Now(),
		environment: environment,
		timeout:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AddCheck makes readiness depend on check.
func (h *Handler) AddCheck(name string, check Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, named[Check]{name, check})
}

// AddStat shows stat on the status page.
func (h *Handler) AddStat(name string, stat Stat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = append(h.stats, named[Stat]{name, stat})
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{Status: "alive"})
}

// CheckResult is one dependency in the readiness response.
type CheckResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type ReadinessResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// HandleReadiness answers 503 when any check fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := append([]named[Check](nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			start := time.Now()
			err := c.fn(ctx)
			res := CheckResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: make(map[string]CheckResult, len(checks))}
	status := http.StatusOK
	for i, c := range checks {
		resp.Checks[c.name] = results[i]
		if results[i].Status != "up" {
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, status, resp)
}

type StatusResponse struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	Environment   string         `json:"environment"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Timestamp     string         `json:"timestamp"`
	Stats         map[string]int `json:"stats,omitempty"`
}

// HandleStatus reports build and runtime details. Stats that fail are left
// out; the endpoint itself stays 200.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	stats := append([]named[Stat](nil), h.stats...)
	h.mu.RUnlock()

	var (
		mu     sync.Mutex
		values = make(map[string]int, len(stats))
		g      errgroup.Group
	)
	for _, s := range stats {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
			defer cancel()
			n, err := s.fn(ctx)
			if err != nil {
				return nil
			}
			mu.Lock()
			values[s.name] = n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(now.Sub(h.started).Seconds()),
		Timestamp:     now.UTC().Format(time.RFC3339),
		Stats:         values,
	})
}
