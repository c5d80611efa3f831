package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session transitions and resets. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Resets      *prometheus.CounterVec
}

// NewMetrics registers session metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verichain_session_transitions_total",
			Help: "Session state transitions by target state",
		}, []string{"state"}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verichain_session_resets_total",
			Help: "Change-driven session resets by cause",
		}, []string{"cause"}),
	}
}

func (m *Metrics) observeTransition(to State) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to.String()).Inc()
}

func (m *Metrics) observeReset(cause string) {
	if m == nil {
		return
	}
	m.Resets.WithLabelValues(cause).Inc()
}
