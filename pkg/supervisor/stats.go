package supervisor

// SlaveStats is the per-slave snapshot exported as Prometheus metrics.
// The `slave` struct tag on each field drives cmd/slave-metrics-gen,
// which emits generated_metrics.go: one prometheus.Desc plus a supplier
// closure per field.
type SlaveStats struct {
	State       float64 `slave:"name=ecat_slave_state,prom_type=gauge,prom_help='Current EtherCAT AL status bitfield (base state ORed with the 0x10 error flag) for this slave.'"`
	Lost        float64 `slave:"name=ecat_slave_lost,prom_type=gauge,prom_help='1 if this slave is currently marked lost, 0 otherwise.'"`
	Transitions float64 `slave:"name=ecat_slave_transitions_total,prom_type=counter,prom_help='Count of supervisor status events observed for this slave since Open.'"`
}
