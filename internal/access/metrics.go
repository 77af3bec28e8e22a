package access

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Denials   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_access_classifications_total",
			Help: "Principal classifications, by resulting role",
		}, []string{"role"}),
		Denials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "firmgate_access_denials_total",
			Help: "Requests refused by a role gate, by required role",
		}, []string{"required"}),
	}
}

func (m *Metrics) IncrementDecision(role Role) {
	m.Decisions.WithLabelValues(string(role)).Inc()
}

func (m *Metrics) IncrementDenial(required Role) {
	m.Denials.WithLabelValues(string(required)).Inc()
}
