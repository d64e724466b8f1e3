package supervisor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
)

func newTestIOMap(t *testing.T) *iomap.IOMap {
	t.Helper()
	return iomap.New(1, 4, 2)
}

type fakeTransport struct {
	states      map[int]ecstate.State
	expectedWKC int32
	writes      []ecstate.State
}

func (f *fakeTransport) ReadState() error { return nil }

func (f *fakeTransport) WriteState(slave int) error {
	f.writes = append(f.writes, f.states[slave])
	return nil
}

func (f *fakeTransport) FetchState(idx int) ecstate.State { return f.states[idx] }

func (f *fakeTransport) SetState(idx int, s ecstate.State) { f.states[idx] = s }

func (f *fakeTransport) StateCheck(slave int, target ecstate.State, timeout time.Duration) (ecstate.State, error) {
	return f.states[slave], nil
}

func (f *fakeTransport) ReconfigSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	f.states[idx] = ecstate.PreOp
	return f.states[idx], nil
}

func (f *fakeTransport) RecoverSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	f.states[idx] = ecstate.SafeOp
	return f.states[idx], nil
}

func (f *fakeTransport) ExpectedWKC() int32 { return f.expectedWKC }

// TestSupervisorErrorThenStateChangedThenResumed exercises scenario S5:
// one slave reports SAFE_OP+ERROR, is acknowledged, then reports plain
// SAFE_OP and is promoted, and the bus-wide Resumed fires once every
// slave is OPERATIONAL.
func TestSupervisorErrorThenStateChangedThenResumed(t *testing.T) {
	ft := &fakeTransport{
		states: map[int]ecstate.State{
			1: ecstate.SafeOp | ecstate.ErrorFlag,
			2: ecstate.Operational,
		},
		expectedWKC: 5,
	}
	var wkc atomic.Int32
	wkc.Store(1) // below expectedWKC, forces the first tick to check state
	var isOpen atomic.Bool
	isOpen.Store(true)

	var events []Event
	s := &Supervisor{
		Transport: ft,
		N:         2,
		WKC:       &wkc,
		IsOpen:    &isOpen,
		Callback:  func(e Event) { events = append(events, e) },
		islost:    make([]bool, 2),
	}

	s.tick()
	if len(events) != 1 || events[0] != (Event{Slave: 1, Status: StatusError}) {
		t.Fatalf("first tick events = %+v, want [Error on slave 1]", events)
	}
	if ft.states[1] != ecstate.SafeOp|ecstate.ErrorFlag {
		t.Fatalf("slave 1 state after ack write = %v, want SAFE_OP|ERROR preserved in local copy", ft.states[1])
	}

	// Ack succeeded on the bus: slave 1 now reports plain SAFE_OP.
	ft.states[1] = ecstate.SafeOp
	events = nil
	s.tick()
	if len(events) != 1 || events[0] != (Event{Slave: 1, Status: StatusStateChanged}) {
		t.Fatalf("second tick events = %+v, want [StateChanged on slave 1]", events)
	}

	// Slave 1 promoted to OPERATIONAL on the bus; next tick should
	// observe every slave OPERATIONAL and emit Resumed.
	ft.states[1] = ecstate.Operational
	wkc.Store(5)
	events = nil
	s.tick()
	if len(events) != 1 || events[0] != (Event{Slave: 0, Status: StatusResumed}) {
		t.Fatalf("third tick events = %+v, want [Resumed]", events)
	}
}

func TestSupervisorLostSlaveZeroesInputAndRecovers(t *testing.T) {
	ft := &fakeTransport{
		states:      map[int]ecstate.State{1: ecstate.None},
		expectedWKC: 2,
	}
	var wkc atomic.Int32
	var isOpen atomic.Bool
	isOpen.Store(true)

	var events []Event
	m := newTestIOMap(t)
	// iomap.New(1, 4, 2): the input region is bytes [4, 6).
	copy(m.Raw()[4:], []byte{0xaa, 0xbb})
	s := &Supervisor{
		Transport: ft,
		IOMap:     m,
		N:         1,
		WKC:       &wkc,
		IsOpen:    &isOpen,
		Callback:  func(e Event) { events = append(events, e) },
		islost:    make([]bool, 1),
	}

	// The recovery pass runs in the same tick as the Lost classification,
	// and the fake's RecoverSlave succeeds at once (slave back in SAFE_OP).
	s.tick()
	if len(events) != 2 || events[0] != (Event{Slave: 1, Status: StatusLost}) || events[1] != (Event{Slave: 1, Status: StatusRecovered}) {
		t.Fatalf("events = %+v, want [Lost on slave 1, Recovered on slave 1]", events)
	}
	if s.islost[0] {
		t.Fatal("islost[0] = true, want false after Recovered")
	}
	for i, b := range m.Bytes()[4:] {
		if b != 0 {
			t.Errorf("input byte %d = %#x after Lost, want 0", i, b)
		}
	}

	// The recovered slave reports SAFE_OP, so the next tick promotes it.
	events = nil
	s.tick()
	if len(events) != 1 || events[0] != (Event{Slave: 1, Status: StatusStateChanged}) {
		t.Fatalf("second tick events = %+v, want [StateChanged on slave 1]", events)
	}
}
