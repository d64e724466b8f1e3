package supervisor

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// slaveEntry is one slave's accumulated stats, guarded by
// SlaveCollector.mu, following the teacher's TCPInfoCollector map-of-
// entries shape (pkg/exporter/exporter.go).
type slaveEntry struct {
	stats SlaveStats
}

// SlaveCollector is a prometheus.Collector over the supervisor's slave
// table, adapted from the teacher's TCPInfoCollector: a mutex-guarded map
// keyed here by slave index instead of net.Conn.
type SlaveCollector struct {
	mu      sync.Mutex
	entries map[int]*slaveEntry
}

// NewSlaveCollector returns a collector ready to track n slaves.
func NewSlaveCollector(n int) *SlaveCollector {
	c := &SlaveCollector{entries: make(map[int]*slaveEntry, n)}
	for i := 1; i <= n; i++ {
		c.entries[i] = &slaveEntry{}
	}
	return c
}

func (c *SlaveCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, d := range slaveMetricDescs {
		descs <- d.description
	}
}

func (c *SlaveCollector) Collect(metrics chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for slave, entry := range c.entries {
		labels := []string{labelForSlave(slave)}
		for _, d := range slaveMetricDescs {
			metrics <- d.supplier(&entry.stats, labels)
		}
	}
}

// Observe records a supervisor status event against the collector's
// running per-slave stats. Slave 0 (the whole-bus Resumed event) is not
// tracked per-slave and is ignored here.
func (c *SlaveCollector) Observe(slave int, status Status) {
	if slave == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[slave]
	if !ok {
		e = &slaveEntry{}
		c.entries[slave] = e
	}
	e.stats.Transitions++
	switch status {
	case StatusLost:
		e.stats.Lost = 1
	case StatusRecovered, StatusStateChanged:
		e.stats.Lost = 0
	}
}

// SetState records the raw AL status bitfield most recently read for a
// slave, independent of status-event observation.
func (c *SlaveCollector) SetState(slave int, raw float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[slave]
	if !ok {
		e = &slaveEntry{}
		c.entries[slave] = e
	}
	e.stats.State = raw
}

func labelForSlave(slave int) string {
	return strconv.Itoa(slave)
}
