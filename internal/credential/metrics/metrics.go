// Package metrics provides Prometheus metrics for credential issuance,
// revocation and verification.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dErrors "verichain/pkg/domain-errors"
)

// Operation labels.
const (
	OpIssue     = "issue"
	OpRevoke    = "revoke"
	OpVerify    = "verify"
	OpReconcile = "reconcile"
)

// Metrics contains credential operation metrics. Methods on a nil *Metrics
// are no-ops.
type Metrics struct {
	// Outcomes by operation and result kind ("ok" or an error code)
	OperationsTotal *prometheus.CounterVec

	// End-to-end latency including confirmation waits
	OperationDurationSeconds *prometheus.HistogramVec

	SupersededTotal *prometheus.CounterVec // Results discarded after a session change

	ListEntriesDroppedTotal prometheus.Counter // Advisory entries removed by reconciliation
}

// New registers metrics with the default registerer.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers metrics with reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verichain_credential_operations_total",
			Help: "Credential operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		OperationDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verichain_credential_operation_duration_seconds",
			Help:    "Duration of credential operations",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120}, // confirmations take seconds to minutes
		}, []string{"operation"}),

		SupersededTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verichain_credential_superseded_total",
			Help: "Operation results discarded because the session changed while in flight",
		}, []string{"operation"}),

		ListEntriesDroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_credential_list_entries_dropped_total",
			Help: "Advisory credential list entries dropped after a live lookup reported not_found",
		}),
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(operation, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDurationSeconds.WithLabelValues(operation).Observe(durationSeconds)
}

// IncrementSuperseded records a discarded result.
func (m *Metrics) IncrementSuperseded(operation string) {
	if m == nil {
		return
	}
	m.SupersededTotal.WithLabelValues(operation).Inc()
}

// AddDroppedEntries records reconciliation removals.
func (m *Metrics) AddDroppedEntries(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ListEntriesDroppedTotal.Add(float64(n))
}

// Outcome is the outcome label for err: "ok" or the error code.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.KindOf(err))
}
