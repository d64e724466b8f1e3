// Package supervisor implements the error supervisor (C6): a dedicated
// thread, running while the link is open, that classifies every slave's
// AL status each state_check_interval and drives acknowledge,
// reconfigure, or recover transitions to return the chain to
// OPERATIONAL, reporting each transition through a status callback.
package supervisor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
)

// Status is one of the five variants reported to the application per
// SPEC_FULL.md §3.
type Status int

const (
	StatusError Status = iota
	StatusLost
	StatusStateChanged
	StatusRecovered
	StatusResumed
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "Error"
	case StatusLost:
		return "Lost"
	case StatusStateChanged:
		return "StateChanged"
	case StatusRecovered:
		return "Recovered"
	case StatusResumed:
		return "Resumed"
	default:
		return "Unknown"
	}
}

// Event is a single status callback invocation. Slave 0 denotes the
// whole bus (only used with StatusResumed).
type Event struct {
	Slave  int
	Status Status
}

// Callback receives one Event per supervisor transition.
type Callback func(Event)

// Transport is the narrow capability the supervisor needs from the
// transport adapter (C1).
type Transport interface {
	ReadState() error
	WriteState(slave int) error
	FetchState(idx int) ecstate.State
	SetState(idx int, s ecstate.State)
	StateCheck(slave int, target ecstate.State, timeout time.Duration) (ecstate.State, error)
	ReconfigSlave(idx int, timeout time.Duration) (ecstate.State, error)
	RecoverSlave(idx int, timeout time.Duration) (ecstate.State, error)
	ExpectedWKC() int32
}

// reconfigTimeout and stateCheckTimeout are the per-operation timeouts
// from SPEC_FULL.md §4.6.
const (
	reconfigTimeout   = 500 * time.Millisecond
	recoverTimeout    = 500 * time.Millisecond
	stateCheckTimeout = 3 * time.Second // stands in for EC_TIMEOUTRET over an RPC/transport boundary
)

// Supervisor runs the state-check loop described in SPEC_FULL.md §4.6.
type Supervisor struct {
	Transport Transport
	IOMap     *iomap.IOMap
	N         int
	Interval  time.Duration

	WKC    *atomic.Int32
	IsOpen *atomic.Bool

	Callback Callback
	Metrics  *SlaveCollector

	docheckstate bool
	islost       []bool
}

func (s *Supervisor) interval() time.Duration {
	if s.Interval > 0 {
		return s.Interval
	}
	return 100 * time.Millisecond
}

func (s *Supervisor) emit(slave int, status Status) {
	if s.Callback != nil {
		s.Callback(Event{Slave: slave, Status: status})
	}
	if s.Metrics != nil {
		s.Metrics.Observe(slave, status)
	}
}

// Run drives the supervisor loop until ctx is canceled or IsOpen is
// cleared.
func (s *Supervisor) Run(ctx context.Context) {
	if s.islost == nil {
		s.islost = make([]bool, s.N)
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()
	for s.IsOpen.Load() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.IsOpen.Load() {
			return
		}
		s.tick()
	}
}

func (s *Supervisor) tick() {
	if s.WKC.Load() >= s.Transport.ExpectedWKC() && !s.docheckstate {
		return
	}
	s.docheckstate = false

	if err := s.Transport.ReadState(); err != nil {
		logrus.WithError(err).Error("supervisor: read_state failed")
		return
	}

	for i := 1; i <= s.N; i++ {
		state := s.Transport.FetchState(i)
		if s.Metrics != nil {
			s.Metrics.SetState(i, float64(state))
		}
		if state.IsOperational() && !state.IsError() {
			continue
		}
		s.docheckstate = true

		switch {
		case state.IsSafeOp() && state.IsError():
			s.emit(i, StatusError)
			s.Transport.SetState(i, ecstate.SafeOp|ecstate.ErrorFlag)
			if err := s.Transport.WriteState(i); err != nil {
				logrus.WithError(err).WithField("slave", i).Warn("supervisor: ack write_state failed")
			}

		case state.IsSafeOp():
			s.emit(i, StatusStateChanged)
			s.Transport.SetState(i, ecstate.Operational)
			if err := s.Transport.WriteState(i); err != nil {
				logrus.WithError(err).WithField("slave", i).Warn("supervisor: promote write_state failed")
			}

		case state.Base() == ecstate.Init || state.Base() == ecstate.PreOp:
			newState, err := s.Transport.ReconfigSlave(i, reconfigTimeout)
			if err == nil && newState.Base() >= ecstate.PreOp {
				s.islost[i-1] = false
			}

		case state.IsNone() && !s.islost[i-1]:
			confirmed, err := s.Transport.StateCheck(i, ecstate.Operational, stateCheckTimeout)
			if err == nil && confirmed.IsNone() {
				s.islost[i-1] = true
				if s.IOMap != nil {
					s.IOMap.ZeroInput(i - 1)
				}
				s.emit(i, StatusLost)
			}
		}
	}

	for i := 1; i <= s.N; i++ {
		if !s.islost[i-1] {
			continue
		}
		state := s.Transport.FetchState(i)
		if !state.IsNone() {
			s.islost[i-1] = false
			continue
		}
		newState, err := s.Transport.RecoverSlave(i, recoverTimeout)
		if err == nil && !newState.IsNone() {
			s.islost[i-1] = false
			s.emit(i, StatusRecovered)
		}
	}

	if !s.docheckstate {
		s.emit(0, StatusResumed)
	}
}
