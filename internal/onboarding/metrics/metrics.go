package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Completions      *prometheus.CounterVec
	IdentityFailures *prometheus.CounterVec
	Reconciliations  *prometheus.CounterVec
	ConsumeReplays   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Completions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_onboarding_completions_total",
			Help: "Firms linked to an identity account, by trigger (interactive, reconcile)",
		}, []string{"trigger"}),
		IdentityFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_onboarding_identity_failures_total",
			Help: "Identity provider calls that failed, by operation",
		}, []string{"operation"}),
		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_onboarding_reconciliations_total",
			Help: "Account-finalized events handled, by result",
		}, []string{"result"}),
		ConsumeReplays: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_onboarding_consume_replays_total",
			Help: "Completions whose token consumption had to be replayed by firm email",
		}),
	}
}

func (m *Metrics) IncrementCompletion(trigger string) {
	m.Completions.WithLabelValues(trigger).Inc()
}

func (m *Metrics) IncrementIdentityFailure(operation string) {
	m.IdentityFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncrementReconciliation(result string) {
	m.Reconciliations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementConsumeReplay() {
	m.ConsumeReplays.Inc()
}
