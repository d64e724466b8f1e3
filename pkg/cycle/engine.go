// Package cycle implements the real-time cycle engine (C7): a
// deadline-driven loop that exchanges process data with the bus, runs
// the PI controller to phase-align the host to the distributed clock,
// and hands TX buffers from the send queue into the I/O map.
package cycle

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
)

// maxConsecutiveMisses is the deadline-miss policy threshold: on this
// many consecutive misses, emit one warning and reset the counter.
const maxConsecutiveMisses = 1000

// Transport is the narrow capability the cycle engine needs from the
// transport adapter (C1).
type Transport interface {
	SendProcessData() error
	ReceiveProcessData(timeout time.Duration) (wkc int, err error)
	DCTime() int64
}

// Engine runs the real-time cycle loop described in SPEC_FULL.md §4.7.
type Engine struct {
	Transport Transport
	IOMap     *iomap.IOMap
	Cycle     time.Duration
	Sleeper   Sleeper

	SendQueue   <-chan []iomap.TxMessage
	BufferQueue chan<- []iomap.TxMessage

	WKC    *atomic.Int32
	IsOpen *atomic.Bool

	Metrics        *Metrics
	ReceiveTimeout time.Duration

	// Affinity, if >= 0, pins this goroutine's OS thread to the given
	// CPU core before the loop starts. ThreadPriority, if nonzero, is
	// applied to the OS thread the same way. Both are OS facilities
	// (golang.org/x/sys/unix on Linux, no-op elsewhere) and both fail
	// fast: Run returns immediately without entering the loop if either
	// fails, leaving IsOpen untouched so the caller can detect the
	// goroutine exited before doing any work.
	Affinity       int
	ThreadPriority int
}

// prepare pins the calling OS thread (via runtime.LockOSThread, since
// affinity and priority are thread-local on Linux) and applies the
// configured affinity/priority. Must be called from the goroutine that
// will run the rest of Run.
func (e *Engine) prepare() error {
	if e.Affinity < 0 && e.ThreadPriority == 0 {
		return nil
	}
	runtime.LockOSThread()
	if e.Affinity >= 0 {
		if err := pinCurrentThread(e.Affinity); err != nil {
			return &ecerr.AffinitySetFailedError{CoreID: e.Affinity}
		}
	}
	if e.ThreadPriority != 0 {
		if err := setCurrentThreadPriority(e.ThreadPriority); err != nil {
			return ecerr.ErrThreadPriority
		}
	}
	return nil
}

func (e *Engine) sleeper() Sleeper {
	if e.Sleeper != nil {
		return e.Sleeper
	}
	return HybridSleeper{}
}

func (e *Engine) receiveTimeout() time.Duration {
	if e.ReceiveTimeout > 0 {
		return e.ReceiveTimeout
	}
	return 2 * e.Cycle
}

// Run drives the cycle loop until ctx is canceled, or until IsOpen is
// cleared (by the link facade on Close) and the send queue is empty, so
// a TX buffer queued before Close is still consumed. An I/O-map
// invariant violation clears IsOpen and returns at once. It returns the
// error from the fail-fast
// affinity/priority setup, if any, without entering the loop.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.prepare(); err != nil {
		logrus.WithError(err).Error("cycle engine: startup failed")
		return err
	}

	if err := e.Transport.SendProcessData(); err != nil {
		logrus.WithError(err).Error("cycle engine: initial send_processdata failed")
	}

	cycleNS := e.Cycle.Nanoseconds()
	pi := NewPIController(cycleNS)
	ts := ceilToCycle(time.Now(), e.Cycle)

	var toff int64
	var misses int

	for e.IsOpen.Load() || len(e.SendQueue) > 0 {
		ts = ts.Add(e.Cycle + time.Duration(toff))

		if ts.After(time.Now()) {
			e.sleeper().SleepUntil(ctx, ts)
			misses = 0
		} else {
			misses++
			if misses >= maxConsecutiveMisses {
				logrus.Warn("cycle engine: missed 1000 consecutive deadlines")
				if e.Metrics != nil {
					e.Metrics.DeadlineMisses.Inc()
				}
				misses = 0
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wkc, err := e.Transport.ReceiveProcessData(e.receiveTimeout())
		if err == nil {
			e.WKC.Store(int32(wkc))
			if e.Metrics != nil {
				e.Metrics.WKC.Set(float64(wkc))
			}
		}

		toff = pi.Update(e.Transport.DCTime())

		select {
		case tx := <-e.SendQueue:
			if err := e.IOMap.CopyFrom(tx); err != nil {
				logrus.WithError(err).Error("cycle engine: io map invariant violated, closing link")
				e.IsOpen.Store(false)
				return err
			}
			e.BufferQueue <- tx
		default:
		}

		if err := e.Transport.SendProcessData(); err != nil {
			logrus.WithError(err).Warn("cycle engine: send_processdata failed")
		}
	}
	return nil
}

// ceilToCycle rounds t up to the next integer multiple of cycle in the
// UTC-nanosecond domain, so deadlines land on cycle boundaries.
func ceilToCycle(t time.Time, cycle time.Duration) time.Time {
	n := t.UnixNano()
	c := cycle.Nanoseconds()
	if c <= 0 {
		return t
	}
	rem := n % c
	if rem == 0 {
		return t
	}
	return time.Unix(0, n+(c-rem))
}
