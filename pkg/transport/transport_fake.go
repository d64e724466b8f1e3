package transport

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
)

// regDCSysDiff mirrors pkg/dcsync.RegDCSysDiff (ETG.1000.4's DCSYSDIFF
// register address); duplicated here rather than imported so pkg/transport
// does not depend on pkg/dcsync.
const regDCSysDiff uint16 = 0x092c

// Fake is a portable, in-memory Transport: it backs the unit tests for
// pkg/link, pkg/supervisor's integration paths, and pkg/discovery, and
// doubles as the "local rehearsal" backend cmd/ecat-demo can select
// instead of Handle when no real interface is attached. It is the
// SPEC_FULL-level elaboration of the source's C-shim test doubles,
// re-architected as a second Go implementation of the same interface
// instead of a compile-time mock.
type Fake struct {
	mu sync.Mutex

	ifname        string
	allowedIfname string // "" means accept any ifname

	slaves     []SlaveInfo
	ioBuf      []byte
	sync0Cycle *time.Duration

	dcDiffNS []int32 // raw DCSYSDIFF per slave, sign-magnitude encoded

	attached bool
}

// NewFake returns a Fake pre-populated with n slaves all named
// vendorName, starting in INIT.
func NewFake(n int, vendorName string) *Fake {
	slaves := make([]SlaveInfo, n)
	for i := range slaves {
		slaves[i] = SlaveInfo{
			Address:    uint16(i + 1),
			State:      ecstate.Init,
			VendorName: vendorName,
		}
	}
	return &Fake{slaves: slaves, dcDiffNS: make([]int32, n)}
}

// RestrictIfname makes Init fail for every interface name except ifname,
// for exercising pkg/discovery's probe-and-skip loop.
func (f *Fake) RestrictIfname(ifname string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowedIfname = ifname
}

// SetDCDiff sets the raw (sign-magnitude encoded) DCSYSDIFF value
// returned for a slave's next FPRD poll.
func (f *Fake) SetDCDiff(slave int, raw int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slave >= 1 && slave <= len(f.dcDiffNS) {
		f.dcDiffNS[slave-1] = raw
	}
}

// SetSlaveState forces a slave's state directly, for tests that drive
// the supervisor through a scripted fault sequence.
func (f *Fake) SetSlaveState(slave int, s ecstate.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slave >= 1 && slave <= len(f.slaves) {
		f.slaves[slave-1].State = s
	}
}

func (f *Fake) Init(ifname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowedIfname != "" && ifname != f.allowedIfname {
		return &ecerr.NoSocketConnectionError{Ifname: ifname}
	}
	f.ifname = ifname
	f.attached = true
	return nil
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sync0Cycle = nil
	for i := range f.slaves {
		f.slaves[i].State = ecstate.Init
	}
	f.attached = false
	return nil
}

func (f *Fake) ConfigInit() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.slaves {
		f.slaves[i].State = ecstate.PreOp
	}
	return len(f.slaves), nil
}

func (f *Fake) ConfigDC(cycle time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := cycle
	f.sync0Cycle = &c
	return nil
}

func (f *Fake) ConfigMap(buf []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ioBuf = buf
	return nil
}

func (f *Fake) StateCheck(slave int, target ecstate.State, timeout time.Duration) (ecstate.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slave < 1 || slave > len(f.slaves) {
		return ecstate.None, nil
	}
	return f.slaves[slave-1].State, nil
}

func (f *Fake) ReadState() error { return nil }

func (f *Fake) WriteState(slave int) error { return nil }

func (f *Fake) FetchState(idx int) ecstate.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx < 1 || idx > len(f.slaves) {
		return ecstate.None
	}
	return f.slaves[idx-1].State
}

func (f *Fake) SetState(idx int, s ecstate.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if idx < 1 || idx > len(f.slaves) {
		return
	}
	f.slaves[idx-1].State = s
}

func (f *Fake) ReconfigSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	f.SetState(idx, ecstate.PreOp)
	return ecstate.PreOp, nil
}

func (f *Fake) RecoverSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	f.SetState(idx, ecstate.PreOp)
	return ecstate.PreOp, nil
}

func (f *Fake) SendProcessData() error { return nil }

func (f *Fake) ReceiveProcessData(timeout time.Duration) (int, error) {
	return int(f.ExpectedWKC()), nil
}

func (f *Fake) FRMW(register uint16, length int, buf []byte, timeout time.Duration) (int, error) {
	return 1, nil
}

func (f *Fake) FPRD(slave int, register uint16, length int, buf []byte, timeout time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if slave < 1 || slave > len(f.dcDiffNS) {
		return 0, nil
	}
	if register == regDCSysDiff && length >= 4 {
		binary.LittleEndian.PutUint32(buf, uint32(f.dcDiffNS[slave-1]))
	}
	return 1, nil
}

func (f *Fake) DCTime() int64 { return time.Now().UnixNano() }

func (f *Fake) ExpectedWKC() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return 2 * int32(len(f.slaves))
}

func (f *Fake) Slaves() []SlaveInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SlaveInfo, len(f.slaves))
	copy(out, f.slaves)
	return out
}
