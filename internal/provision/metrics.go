package provision

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tullo/scimd/internal/directory"
)

// Metrics counts directory mirror outcomes.
type Metrics struct {
	directoryOps *prometheus.CounterVec
}

// NewMetrics returns unregistered counters.
func NewMetrics() *Metrics {
	return &Metrics{
		directoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scimd",
			Subsystem: "directory",
			Name:      "operations_total",
			Help:      "Number of directory mirror operations by operation and result.",
		}, []string{"op", "result"}),
	}
}

// PrometheusCollectors returns all prometheus metrics of the service.
func (m *Metrics) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{m.directoryOps}
}

func (m *Metrics) observe(out directory.Outcome) {
	m.directoryOps.WithLabelValues(string(out.Op), out.Result()).Inc()
}
