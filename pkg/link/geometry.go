package link

// DeviceSpec describes one expected slave in the chain, supplied by the
// caller so Open can fail fast (S4) before any cycle/supervisor
// goroutine is spawned.
type DeviceSpec struct {
	// VendorName, if non-empty, must match the discovered slave's vendor
	// name exactly (slave-identity check, §2).
	VendorName string
}

// Geometry is the caller's expected slave chain, in bus order. A nil or
// empty Geometry skips both the slave-count and identity checks.
type Geometry []DeviceSpec
