package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	FirmsCreated         prometheus.Counter
	OnboardingsCompleted prometheus.Counter
	OnboardingConflicts  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		FirmsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_firms_created_total",
			Help: "Total number of firms created by the admin",
		}),
		OnboardingsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_firm_onboardings_completed_total",
			Help: "Total number of firms that completed onboarding",
		}),
		OnboardingConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "firmgate_firm_onboarding_conflicts_total",
			Help: "Completion attempts on firms that had already completed onboarding",
		}),
	}
}

func (m *Metrics) IncrementFirmsCreated() {
	m.FirmsCreated.Inc()
}

func (m *Metrics) IncrementOnboardingsCompleted() {
	m.OnboardingsCompleted.Inc()
}

func (m *Metrics) IncrementOnboardingConflicts() {
	m.OnboardingConflicts.Inc()
}
