package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments the audit relay.
type Metrics struct {
	PendingDepth    prometheus.Gauge
	PublishedTotal  prometheus.Counter
	PublishFailures prometheus.Counter
	PublishDuration prometheus.Histogram
	BatchSize       prometheus.Histogram
	PollDuration    prometheus.Histogram
}

func New() *Metrics {
	latency := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}
	return &Metrics{
		PendingDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "firmgate_audit_outbox_pending",
			Help: "Audit outbox entries not yet published",
		}),
		PublishedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_audit_outbox_published_total",
			Help: "Audit outbox entries published to Kafka",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_audit_outbox_publish_failures_total",
			Help: "Failed audit outbox fetches or publishes",
		}),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firmgate_audit_outbox_publish_duration_seconds",
			Help:    "Time to publish one audit outbox entry",
			Buckets: latency,
		}),
		BatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firmgate_audit_outbox_batch_size",
			Help:    "Entries handled per poll",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firmgate_audit_outbox_poll_duration_seconds",
			Help:    "Time spent per poll cycle",
			Buckets: latency,
		}),
	}
}

func (m *Metrics) SetPendingDepth(n int64) {
	m.PendingDepth.Set(float64(n))
}

func (m *Metrics) IncPublished() {
	m.PublishedTotal.Inc()
}

func (m *Metrics) IncPublishFailures() {
	m.PublishFailures.Inc()
}

func (m *Metrics) ObservePublishDuration(seconds float64) {
	m.PublishDuration.Observe(seconds)
}

func (m *Metrics) ObserveBatchSize(n int) {
	m.BatchSize.Observe(float64(n))
}

func (m *Metrics) ObservePollDuration(seconds float64) {
	m.PollDuration.Observe(seconds)
}
