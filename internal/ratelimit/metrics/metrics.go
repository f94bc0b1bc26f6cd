package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitDecisionsTotal         *prometheus.CounterVec
	RateLimitStoreErrorsTotal       prometheus.Counter
	RateLimitCleanupPurgedTotal     prometheus.Counter
	RateLimitCleanupRunsTotal       *prometheus.CounterVec
	RateLimitCleanupDurationSeconds prometheus.Histogram
	RateLimitBuckets                prometheus.Gauge
	RateLimitStoreDegraded          prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RateLimitDecisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phonebook_ratelimit_decisions_total",
			Help: "Total number of rate limit decisions, labeled by scope and decision",
		}, []string{"scope", "decision"}),
		RateLimitStoreErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "phonebook_ratelimit_store_errors_total",
			Help: "Total number of rate limit store failures (requests admitted)",
		}),
		RateLimitCleanupPurgedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "phonebook_ratelimit_cleanup_purged_total",
			Help: "Total number of expired buckets removed by the cleanup worker",
		}),
		RateLimitCleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phonebook_ratelimit_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		RateLimitCleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "phonebook_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
		RateLimitBuckets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phonebook_ratelimit_buckets",
			Help: "Current number of in-memory rate limit buckets",
		}),
		RateLimitStoreDegraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phonebook_ratelimit_store_degraded",
			Help: "1 while the shared store is bypassed for the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncrementAllowed(scope string) {
	m.RateLimitDecisionsTotal.WithLabelValues(scope, "allowed").Inc()
}

func (m *Metrics) IncrementRejected(scope string) {
	m.RateLimitDecisionsTotal.WithLabelValues(scope, "rejected").Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	m.RateLimitStoreErrorsTotal.Inc()
}

func (m *Metrics) IncrementCleanupPurged(count int) {
	m.RateLimitCleanupPurgedTotal.Add(float64(count))
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	m.RateLimitCleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCleanupDuration(durationSeconds float64) {
	m.RateLimitCleanupDurationSeconds.Observe(durationSeconds)
}

func (m *Metrics) SetBuckets(count int) {
	m.RateLimitBuckets.Set(float64(count))
}

func (m *Metrics) SetStoreDegraded(degraded bool) {
	if degraded {
		m.RateLimitStoreDegraded.Set(1)
		return
	}
	m.RateLimitStoreDegraded.Set(0)
}
