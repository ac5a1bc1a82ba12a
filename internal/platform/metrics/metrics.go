package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "hacs"
	subsystem = "modeling"
)

// Metrics holds the Prometheus collectors for modeling operations. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	graphEdges  prometheus.Histogram
	diffEntries prometheus.Histogram
	registered  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operations_total",
				Help:      "Modeling operations by name and result.",
			},
			[]string{"operation", "result"}, // "success" or "failure"
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "operation_duration_seconds",
				Help:      "Modeling operation latency in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~160ms
			},
			[]string{"operation"},
		),
		graphEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "graph_edges",
			Help:      "Edges recorded per graph traversal.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		diffEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "diff_entries",
			Help:      "Entries produced per resource diff.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "registered_types",
			Help:      "Resource types currently in the model registry.",
		}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.duration, m.graphEdges, m.diffEntries, m.registered} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveOperation records one operation's result and latency.
func (m *Metrics) ObserveOperation(operation string, started time.Time, success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveGraph records the edge count of a traversal.
func (m *Metrics) ObserveGraph(edges int) {
	if m == nil {
		return
	}
	m.graphEdges.Observe(float64(edges))
}

// ObserveDiff records the entry count of a diff.
func (m *Metrics) ObserveDiff(entries int) {
	if m == nil {
		return
	}
	m.diffEntries.Observe(float64(entries))
}

// SetRegisteredTypes sets the registry size gauge.
func (m *Metrics) SetRegisteredTypes(n int) {
	if m == nil {
		return
	}
	m.registered.Set(float64(n))
}
