// Package metrics provides the shared Prometheus registry and HTTP
// handler wiring consumed by pkg/cycle and pkg/supervisor, generalizing
// the teacher's cmd/exporter_example1/main.go demo-server shape into a
// reusable component.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a private *prometheus.Registry rather than the global
// default one; MustRegister panics on a registration error the way the
// teacher's main() does with prometheus.MustRegister.
type Registry struct {
	reg *prometheus.Registry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{reg: prometheus.NewRegistry()}
}

// MustRegister registers every collector, panicking on a duplicate or
// inconsistent collector the same way prometheus.MustRegister does.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Handler returns the promhttp.Handler bound to this registry, for
// mounting at "/metrics".
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
