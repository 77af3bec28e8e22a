package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TokensIssued      *prometheus.CounterVec
	TokensInvalidated *prometheus.CounterVec
	TokensConsumed    prometheus.Counter
	Validations       *prometheus.CounterVec
	DrawAttempts      prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		TokensIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_tokens_issued_total",
			Help: "Onboarding tokens issued, by mode (normal, force)",
		}, []string{"mode"}),
		TokensInvalidated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_tokens_invalidated_total",
			Help: "Unused tokens retired before issuing a new one, by reason",
		}, []string{"reason"}),
		TokensConsumed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_tokens_consumed_total",
			Help: "Onboarding tokens marked used by a completed onboarding",
		}),
		Validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_token_validations_total",
			Help: "Token validations by outcome (valid or the failure reason)",
		}, []string{"outcome"}),
		DrawAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "firmgate_token_draw_attempts",
			Help:    "Random draws needed to find an unused token string",
			Buckets: []float64{1, 2, 3, 5, 10, 64},
		}),
	}
}

func (m *Metrics) IncrementIssued(force bool) {
	mode := "normal"
	if force {
		mode = "force"
	}
	m.TokensIssued.WithLabelValues(mode).Inc()
}

func (m *Metrics) AddInvalidated(reason string, n int) {
	m.TokensInvalidated.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) AddConsumed(n int) {
	m.TokensConsumed.Add(float64(n))
}

func (m *Metrics) IncrementValidation(outcome string) {
	m.Validations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveDrawAttempts(n int) {
	m.DrawAttempts.Observe(float64(n))
}
