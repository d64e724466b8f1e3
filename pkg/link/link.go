// Package link implements the application-facing link facade (C8): open,
// close, send, receive, and TX-buffer allocation, wiring together the
// transport adapter, I/O map, sync waiter, cycle engine, and supervisor
// into the orchestration described in SPEC_FULL.md §2 and §4.8.
package link

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/autd-ecat-link/pkg/cycle"
	"github.com/simeonmiteff/autd-ecat-link/pkg/dcsync"
	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
	"github.com/simeonmiteff/autd-ecat-link/pkg/supervisor"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

// cycleQuantum is the unit every configured cycle duration must be a
// non-zero multiple of.
const cycleQuantum = 500 * time.Microsecond

// minSlaveStateTimeout bounds how long Open waits for the chain to reach
// SAFE_OP/OPERATIONAL, per slave.
const minSlaveStateTimeout = 3 * time.Second

// Link is the application-facing handle returned by Open. The zero value
// is not usable; construct with New.
type Link struct {
	opts      Options
	transport transport.Transport

	iomap *iomap.IOMap

	sendQueue   chan []iomap.TxMessage
	bufferQueue chan []iomap.TxMessage

	wkc    atomic.Int32
	isOpen atomic.Bool

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	engine  *cycle.Engine
	super   *supervisor.Supervisor
	session xid.ID

	n int
}

// New constructs an unopened Link.
func New() *Link {
	return &Link{}
}

func validateCycle(d time.Duration) error {
	if d <= 0 || d%cycleQuantum != 0 {
		return &ecerr.InvalidCycleError{Duration: d}
	}
	return nil
}

// Open attaches to the bus, waits for distributed-clock synchronization,
// and brings the chain up to OPERATIONAL, spawning the cycle and
// supervisor goroutines described in SPEC_FULL.md §4.7/§4.6. On any
// failure, every resource created so far is released before Open
// returns.
func (l *Link) Open(ctx context.Context, geometry Geometry, opts ...Option) (err error) {
	o := newOptions(opts...)
	l.opts = o
	l.session = xid.New()
	log := logrus.WithField("session", l.session.String())

	if err := validateCycle(o.SendCycle); err != nil {
		return err
	}
	if err := validateCycle(o.Sync0Cycle); err != nil {
		return err
	}

	if o.Transport != nil {
		l.transport = o.Transport
	} else {
		l.transport = transport.Default()
	}

	closeOnFailure := func() {
		if err != nil {
			_ = l.transport.Close()
		}
	}
	defer closeOnFailure()

	log.WithField("ifname", o.Ifname).Info("link: opening")
	if err = l.transport.Init(o.Ifname); err != nil {
		return err
	}

	wc, err := l.transport.ConfigInit()
	if err != nil {
		return err
	}
	if len(geometry) > 0 && wc != len(geometry) {
		err = &ecerr.SlaveNotFoundError{Found: wc, Expected: len(geometry)}
		return err
	}
	if len(geometry) > 0 {
		slaves := l.transport.Slaves()
		for i, spec := range geometry {
			if spec.VendorName == "" || i >= len(slaves) {
				continue
			}
			if slaves[i].VendorName != spec.VendorName {
				err = &ecerr.SlaveNotFoundError{Found: wc, Expected: len(geometry)}
				return err
			}
		}
	}
	l.n = wc

	if err = l.transport.ConfigDC(o.Sync0Cycle); err != nil {
		return err
	}

	waiter := &dcsync.Waiter{
		Transport: l.transport,
		Tolerance: o.SyncTolerance,
		Timeout:   o.SyncTimeout,
	}
	maxDiff, err := waiter.Wait(ctx, wc)
	if err != nil {
		return err
	}
	log.WithField("max_diff", maxDiff).Info("link: dc sync settled")

	l.iomap = iomap.New(wc, o.OutFrame, o.InFrame)
	if err = l.transport.ConfigMap(l.iomap.Raw()); err != nil {
		return err
	}

	if err = l.requestState(ecstate.SafeOp); err != nil {
		return err
	}

	l.sendQueue = make(chan []iomap.TxMessage, o.BufSize)
	l.bufferQueue = make(chan []iomap.TxMessage, o.BufSize)
	for i := 0; i < o.BufSize; i++ {
		buf := make([]iomap.TxMessage, wc)
		for s := range buf {
			buf[s] = iomap.TxMessage{Payload: make([]byte, o.OutFrame-iomap.HeaderSize)}
		}
		l.bufferQueue <- buf
	}

	l.isOpen.Store(true)

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.engine = &cycle.Engine{
		Transport:      l.transport,
		IOMap:          l.iomap,
		Cycle:          o.SendCycle,
		SendQueue:      l.sendQueue,
		BufferQueue:    l.bufferQueue,
		WKC:            &l.wkc,
		IsOpen:         &l.isOpen,
		Affinity:       o.Affinity,
		ThreadPriority: o.ThreadPriority,
		Metrics:        o.CycleMetrics,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if runErr := l.engine.Run(runCtx); runErr != nil && runErr != context.Canceled {
			log.WithError(runErr).Error("link: cycle engine exited")
		}
	}()

	if err = l.requestState(ecstate.Operational); err != nil {
		l.isOpen.Store(false)
		cancel()
		l.wg.Wait()
		return err
	}

	l.super = &supervisor.Supervisor{
		Transport: l.transport,
		IOMap:     l.iomap,
		N:         wc,
		Interval:  o.StateCheckInterval,
		WKC:       &l.wkc,
		IsOpen:    &l.isOpen,
		Callback:  o.Callback,
		Metrics:   o.Metrics,
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.super.Run(runCtx)
	}()

	log.Info("link: open")
	return nil
}

// requestState drives every slave to target (broadcast write, then poll
// each individually). If any slave doesn't confirm within
// minSlaveStateTimeout it fails NotReachedRequiredState, except for an
// OPERATIONAL target, where it logs every slave's AL status and fails
// ecerr.ErrNotResponding.
func (l *Link) requestState(target ecstate.State) error {
	for i := 1; i <= l.n; i++ {
		l.transport.SetState(i, target)
		if err := l.transport.WriteState(i); err != nil {
			return fmt.Errorf("link: write_state(%d, %s): %w", i, target, err)
		}
	}
	for i := 1; i <= l.n; i++ {
		got, err := l.transport.StateCheck(i, target, minSlaveStateTimeout)
		if err != nil || got.Base() != target {
			if target == ecstate.Operational {
				for _, s := range l.transport.Slaves() {
					logrus.WithField("session", l.session.String()).
						WithField("state", s.State.String()).
						Warn("link: slave AL status")
				}
				return ecerr.ErrNotResponding
			}
			return &ecerr.NotReachedRequiredStateError{Expected: target, Actual: got}
		}
	}
	return nil
}

// AllocTXBuffer borrows a TX buffer from the pool, blocking until one is
// available. Returns ecerr.ErrClosed if the link is closed (or closing)
// while waiting.
func (l *Link) AllocTXBuffer() ([]iomap.TxMessage, error) {
	if !l.isOpen.Load() {
		return nil, ecerr.ErrClosed
	}
	buf, ok := <-l.bufferQueue
	if !ok {
		return nil, ecerr.ErrClosed
	}
	return buf, nil
}

// Send enqueues tx for the cycle engine to copy into the I/O map on its
// next iteration. Returns ecerr.ErrClosed if the link is already closed.
func (l *Link) Send(tx []iomap.TxMessage) error {
	if !l.isOpen.Load() {
		return ecerr.ErrClosed
	}
	l.sendQueue <- tx
	return nil
}

// Receive copies the current I/O-map input region into rx, which must
// have one RxMessage per slave (§4.8). The copy is taken under the I/O
// map's mutex. On a closed link it returns the input last copied into the
// map; it returns ecerr.ErrClosed only if the link was never opened.
func (l *Link) Receive(rx []iomap.RxMessage) error {
	if l.iomap == nil {
		return ecerr.ErrClosed
	}
	n, inFrame := l.iomap.N(), l.iomap.InFrame()
	if len(rx) != n {
		return fmt.Errorf("link: Receive got %d slots, want %d", len(rx), n)
	}
	in := l.iomap.Bytes()[n*l.iomap.OutFrame():]
	for i := range rx {
		if len(rx[i].Raw) != inFrame {
			rx[i].Raw = make([]byte, inFrame)
		}
		copy(rx[i].Raw, in[i*inFrame:(i+1)*inFrame])
	}
	return nil
}

// IsOpen reports whether the link is currently open.
func (l *Link) IsOpen() bool {
	return l.isOpen.Load()
}

// Close drains the send queue, stops the cycle and supervisor goroutines,
// and releases the transport. Close is idempotent and safe to call more
// than once.
func (l *Link) Close() error {
	if !l.isOpen.CompareAndSwap(true, false) {
		return nil
	}
	log := logrus.WithField("session", l.session.String())
	log.Info("link: closing")

	for len(l.sendQueue) > 0 {
		time.Sleep(100 * time.Millisecond)
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	close(l.sendQueue)
	close(l.bufferQueue)

	err := l.transport.Close()
	log.Info("link: closed")
	return err
}
