package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit publisher. Methods on a nil
// *Metrics are no-ops.
type Metrics struct {
	// Queue metrics
	QueueDepth     prometheus.Gauge
	EventsDropped  prometheus.Counter
	EventsEnqueued prometheus.Counter

	// Processing metrics
	PersistDuration prometheus.Histogram
	PersistFailures prometheus.Counter
	SinkFailures    prometheus.Counter
	EventsProcessed prometheus.Counter
}

// New registers the audit metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "verichain_audit_queue_depth",
			Help: "Current number of events in the audit publisher queue",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_audit_events_dropped_total",
			Help: "Total number of audit events dropped due to full buffer",
		}),
		EventsEnqueued: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_audit_events_enqueued_total",
			Help: "Total number of audit events successfully enqueued",
		}),
		PersistDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "verichain_audit_persist_duration_seconds",
			Help:    "Time taken to persist an audit event to the store",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		PersistFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		SinkFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_audit_sink_failures_total",
			Help: "Total number of failed deliveries to secondary audit sinks",
		}),
		EventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Name: "verichain_audit_events_processed_total",
			Help: "Total number of audit events successfully processed by the worker",
		}),
	}
}

func (m *Metrics) IncQueueDepth() {
	if m != nil {
		m.QueueDepth.Inc()
	}
}

func (m *Metrics) DecQueueDepth() {
	if m != nil {
		m.QueueDepth.Dec()
	}
}

func (m *Metrics) IncEventsDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}

func (m *Metrics) IncEventsEnqueued() {
	if m != nil {
		m.EventsEnqueued.Inc()
	}
}

// ObservePersistDuration records the persist operation latency.
func (m *Metrics) ObservePersistDuration(durationSeconds float64) {
	if m != nil {
		m.PersistDuration.Observe(durationSeconds)
	}
}

func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}

func (m *Metrics) IncSinkFailures() {
	if m != nil {
		m.SinkFailures.Inc()
	}
}

func (m *Metrics) IncEventsProcessed() {
	if m != nil {
		m.EventsProcessed.Inc()
	}
}
