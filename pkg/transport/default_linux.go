//go:build linux

package transport

// Default constructs the transport Open uses when the caller doesn't
// supply one: a real AF_PACKET handle, since raw-socket EtherCAT framing
// is Linux-only.
func Default() Transport {
	return NewHandle()
}
