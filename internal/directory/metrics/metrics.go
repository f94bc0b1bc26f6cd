package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Metrics holds Prometheus collectors for directory search and ingestion.
type Metrics struct {
	Searches          *prometheus.CounterVec
	SearchPatterns    prometheus.Histogram
	SearchLatency     prometheus.Histogram
	ContactsAdded     prometheus.Counter
	ContactsRejected  *prometheus.CounterVec
	EventPublishFails prometheus.Counter

	StoreOperationLatency *prometheus.HistogramVec
}

// New registers directory collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phonebook_directory_searches_total",
			Help: "Total number of keypad searches, labeled by outcome",
		}, []string{"outcome"}),
		SearchPatterns: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "phonebook_directory_search_patterns",
			Help:    "Number of name prefixes a search query expanded to",
			Buckets: []float64{1, 3, 9, 27, 81, 243, 729, 2187, 6561, 16384},
		}),
		SearchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "phonebook_directory_search_latency_seconds",
			Help:    "Latency of keypad searches in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		ContactsAdded: factory.NewCounter(prometheus.CounterOpts{
			Name: "phonebook_directory_contacts_added_total",
			Help: "Total number of contacts stored",
		}),
		ContactsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "phonebook_directory_contacts_rejected_total",
			Help: "Total number of contact submissions not stored, labeled by reason",
		}, []string{"reason"}),
		EventPublishFails: factory.NewCounter(prometheus.CounterOpts{
			Name: "phonebook_directory_event_publish_failures_total",
			Help: "Total number of contact events that could not be published",
		}),
		StoreOperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "phonebook_directory_store_operation_latency_seconds",
			Help:    "Latency of contact store operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementSearches(outcome string) {
	m.Searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSearchPatterns(count int) {
	m.SearchPatterns.Observe(float64(count))
}

func (m *Metrics) ObserveSearchLatency(durationSeconds float64) {
	m.SearchLatency.Observe(durationSeconds)
}

func (m *Metrics) IncrementContactsAdded() {
	m.ContactsAdded.Inc()
}

func (m *Metrics) IncrementContactsRejected(reason string) {
	m.ContactsRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementEventPublishFailures() {
	m.EventPublishFails.Inc()
}

// ObserveStoreOperation records store latency for operation.
func (m *Metrics) ObserveStoreOperation(operation string, durationSeconds float64) {
	m.StoreOperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}
