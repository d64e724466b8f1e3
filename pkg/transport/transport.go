// Package transport implements the EtherCAT transport adapter (C1): the
// thin wrapper around raw-socket attach/detach, process-data exchange,
// register access, slave-state read/write, and DC configuration.
//
// This package is explicitly a minimal shim, not a conformant EtherCAT
// master (see SPEC_FULL.md §1): it is enough to drive the rest of this
// module end to end against a single Ethernet segment, using the same
// "explicit context, no package-global mutability" re-architecture the
// spec calls for in place of the source's C-library globals.
package transport

import (
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
)

// SlaveInfo mirrors the source's "slave record": the fields materially
// used by the core (configured address, current state, lost flag,
// process-data byte counts, vendor name).
type SlaveInfo struct {
	Address     uint16
	State       ecstate.State
	IsLost      bool
	VendorName  string
	OutputBytes int
	InputBytes  int
}

// Transport is the capability set the rest of this module needs from the
// EtherCAT transport layer, per SPEC_FULL.md §4.1.
type Transport interface {
	// Init attaches to the named network interface. The Linux Handle
	// returns ecerr.InvalidInterfaceNameError for an interface the host
	// does not know and ecerr.NoSocketConnectionError when the socket
	// cannot be opened or bound.
	Init(ifname string) error
	// Close detaches from the interface after clearing the stored SYNC0
	// cycle and setting every slave to INIT. No implementation in this
	// package writes SYNC0 registers on the slaves.
	Close() error

	// ConfigInit enumerates the slave chain and returns the discovered
	// working counter (slave count).
	ConfigInit() (wc int, err error)
	// ConfigDC stores cycle as the adapter's SYNC0 userdata value, held
	// until Close clears it. No implementation in this package installs a
	// post-config hook or programs SYNC0 registers on the slaves.
	ConfigDC(cycle time.Duration) error
	// ConfigMap installs buf as the process-image backing store; buf
	// must be exactly the size computed by the caller's I/O map.
	ConfigMap(buf []byte) error

	StateCheck(slave int, target ecstate.State, timeout time.Duration) (ecstate.State, error)
	ReadState() error
	WriteState(slave int) error
	FetchState(idx int) ecstate.State
	SetState(idx int, s ecstate.State)
	// ReconfigSlave re-runs the PRE_OP->SAFE_OP configuration sequence
	// for a single slave that dropped back to INIT or PRE_OP.
	ReconfigSlave(idx int, timeout time.Duration) (ecstate.State, error)
	// RecoverSlave re-attaches a slave that reported NONE (no response)
	// by re-addressing it onto the chain.
	RecoverSlave(idx int, timeout time.Duration) (ecstate.State, error)

	SendProcessData() error
	ReceiveProcessData(timeout time.Duration) (wkc int, err error)

	FRMW(register uint16, length int, buf []byte, timeout time.Duration) (wc int, err error)
	FPRD(slave int, register uint16, length int, buf []byte, timeout time.Duration) (wc int, err error)

	DCTime() int64
	ExpectedWKC() int32
	Slaves() []SlaveInfo
}
