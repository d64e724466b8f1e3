package cycle

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the cycle engine's Prometheus instruments, following the
// teacher's habit (cmd/exporter_example1/main.go) of constructing gauges
// directly with prometheus.New* rather than via a generated Desc table
// (that codegen style is reserved for pkg/supervisor's larger, tag-driven
// metric set; see cmd/slave-metrics-gen).
type Metrics struct {
	WKC            prometheus.Gauge
	DeadlineMisses prometheus.Counter
}

// NewMetrics constructs a fresh, unregistered Metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		WKC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecat_cycle_working_counter",
			Help: "Most recently observed EtherCAT working counter.",
		}),
		DeadlineMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecat_cycle_deadline_misses_total",
			Help: "Count of cycle-engine deadline-miss warning events (each representing 1000 consecutive misses).",
		}),
	}
}

// Collectors returns every collector in Metrics, for bulk registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.WKC, m.DeadlineMisses}
}
