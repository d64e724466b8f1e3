// Package dcsync implements the distributed-clock synchronization phase
// run once during Open: it waits, with smoothing, for every slave's
// DCSYSDIFF reading to settle below a tolerance.
package dcsync

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/smoothing"
)

// Register addresses as defined by the EtherCAT standard (ETG.1000.4): the
// distributed-clock system time and its per-slave deviation from the
// reference.
const (
	RegDCSysTime uint16 = 0x0910
	RegDCSysDiff uint16 = 0x092c
)

// Transport is the narrow capability this package needs from the
// transport adapter (C1): broadcast and fixed-address register reads.
type Transport interface {
	FRMW(register uint16, length int, buf []byte, timeout time.Duration) (wc int, err error)
	FPRD(slave int, register uint16, length int, buf []byte, timeout time.Duration) (wc int, err error)
}

// DecodeSysDiff decodes a raw DCSYSDIFF register value. The value is
// sign-magnitude encoded: the top bit is the sign, the low 31 bits are
// the magnitude in nanoseconds.
func DecodeSysDiff(raw uint32) int64 {
	magnitude := int64(raw &^ 0x8000_0000)
	if raw&0x8000_0000 != 0 {
		return -magnitude
	}
	return magnitude
}

// Waiter runs the sync-wait phase against n slaves.
type Waiter struct {
	Transport      Transport
	Tolerance      time.Duration
	Timeout        time.Duration
	PollEvery      time.Duration // default 10ms
	BroadcastEvery time.Duration // default 1ms
	Settle         time.Duration // default 100ms
}

func (w *Waiter) pollEvery() time.Duration {
	if w.PollEvery > 0 {
		return w.PollEvery
	}
	return 10 * time.Millisecond
}

func (w *Waiter) broadcastEvery() time.Duration {
	if w.BroadcastEvery > 0 {
		return w.BroadcastEvery
	}
	return time.Millisecond
}

func (w *Waiter) settle() time.Duration {
	if w.Settle > 0 {
		return w.Settle
	}
	return 100 * time.Millisecond
}

// Wait blocks until every slave's filtered absolute DCSYSDIFF falls below
// Tolerance, or returns ecerr.SynchronizeFailedError on Timeout. For
// n == 1 it returns immediately with a zero max diff (degenerate case,
// property P5): a single slave is definitionally its own reference.
func (w *Waiter) Wait(ctx context.Context, n int) (time.Duration, error) {
	if n <= 1 {
		return 0, nil
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go w.broadcastReferenceClock(done, &wg)
	defer func() {
		close(done)
		wg.Wait()
	}()

	time.Sleep(w.settle())

	filters := make([]*smoothing.Filter, n)
	lastRaw := make([]uint32, n)
	for i := range filters {
		filters[i] = smoothing.New(0.2)
	}

	deadline := time.Now().Add(w.Timeout)
	ticker := time.NewTicker(w.pollEvery())
	defer ticker.Stop()

	for {
		var maxDiff time.Duration
		buf := make([]byte, 4)
		for slave := 1; slave <= n; slave++ {
			wc, err := w.Transport.FPRD(slave, RegDCSysDiff, 4, buf, w.pollEvery())
			raw := lastRaw[slave-1]
			if err == nil && wc == 1 {
				raw = binary.LittleEndian.Uint32(buf)
				lastRaw[slave-1] = raw
			}
			signed := DecodeSysDiff(raw)
			filtered := filters[slave-1].Push(float64(signed))
			abs := filtered
			if abs < 0 {
				abs = -abs
			}
			d := time.Duration(abs) * time.Nanosecond
			if d > maxDiff {
				maxDiff = d
			}
		}

		if maxDiff <= w.Tolerance {
			return maxDiff, nil
		}

		if time.Now().After(deadline) {
			return maxDiff, &ecerr.SynchronizeFailedError{MaxDiff: maxDiff, Tolerance: w.Tolerance}
		}

		select {
		case <-ctx.Done():
			return maxDiff, ctx.Err()
		case <-ticker.C:
		}
	}
}

// broadcastReferenceClock continuously distributes DCSYSTIME via FRMW
// broadcast reads until done is closed, so every slave's own clock stays
// disciplined while the main goroutine polls DCSYSDIFF.
func (w *Waiter) broadcastReferenceClock(done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(w.broadcastEvery())
	defer ticker.Stop()
	buf := make([]byte, 8)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			_, _ = w.Transport.FRMW(RegDCSysTime, 8, buf, w.broadcastEvery())
		}
	}
}
