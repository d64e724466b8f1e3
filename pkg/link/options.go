package link

import (
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/cycle"
	"github.com/simeonmiteff/autd-ecat-link/pkg/supervisor"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

// Options configures Open, following the teacher's functional-options
// style. newOptions starts from the defaults in SPEC_FULL.md §8 and then
// applies each Option in order.
type Options struct {
	Ifname             string
	StateCheckInterval time.Duration
	Sync0Cycle         time.Duration
	SendCycle          time.Duration
	SyncTolerance      time.Duration
	SyncTimeout        time.Duration
	BufSize            int
	ThreadPriority     int
	Affinity           int // -1 means "no affinity"

	OutFrame int // per-slave TX frame size in bytes, header included
	InFrame  int // per-slave RX frame size in bytes

	// Callback, if set, receives every supervisor status transition
	// (§4.6). Metrics, if set, additionally feeds the same transitions
	// into a Prometheus collector.
	Callback supervisor.Callback
	Metrics  *supervisor.SlaveCollector

	// CycleMetrics, if set, feeds the cycle engine's working-counter and
	// deadline-miss gauges (§4.7).
	CycleMetrics *cycle.Metrics

	// Transport overrides the transport adapter Open constructs. Tests
	// and cmd/ecat-demo's -fake rehearsal mode inject a
	// *transport.Fake here; left nil, Open builds a real
	// *transport.Handle (Linux only).
	Transport transport.Transport
}

// Option mutates an Options value under construction.
type Option func(*Options)

func WithIfname(ifname string) Option {
	return func(o *Options) { o.Ifname = ifname }
}

func WithStateCheckInterval(d time.Duration) Option {
	return func(o *Options) { o.StateCheckInterval = d }
}

func WithSync0Cycle(d time.Duration) Option {
	return func(o *Options) { o.Sync0Cycle = d }
}

func WithSendCycle(d time.Duration) Option {
	return func(o *Options) { o.SendCycle = d }
}

func WithSyncTolerance(d time.Duration) Option {
	return func(o *Options) { o.SyncTolerance = d }
}

func WithSyncTimeout(d time.Duration) Option {
	return func(o *Options) { o.SyncTimeout = d }
}

func WithBufSize(n int) Option {
	return func(o *Options) { o.BufSize = n }
}

func WithThreadPriority(p int) Option {
	return func(o *Options) { o.ThreadPriority = p }
}

func WithAffinity(core int) Option {
	return func(o *Options) { o.Affinity = core }
}

func WithFrameSizes(outFrame, inFrame int) Option {
	return func(o *Options) { o.OutFrame = outFrame; o.InFrame = inFrame }
}

func WithCallback(cb supervisor.Callback) Option {
	return func(o *Options) { o.Callback = cb }
}

func WithMetrics(m *supervisor.SlaveCollector) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithCycleMetrics(m *cycle.Metrics) Option {
	return func(o *Options) { o.CycleMetrics = m }
}

func WithTransport(t transport.Transport) Option {
	return func(o *Options) { o.Transport = t }
}

// defaultOutFrame/defaultInFrame are the default per-slave process-image
// frame sizes: a 4-byte header plus a 60-byte payload for TX, and a
// 2-byte status/measurement word for RX. Callers with a different
// process-image layout should supply WithFrameSizes.
const (
	defaultOutFrame = 64
	defaultInFrame  = 2
)

func newOptions(opts ...Option) Options {
	o := Options{
		StateCheckInterval: 100 * time.Millisecond,
		Sync0Cycle:         time.Millisecond,
		SendCycle:          time.Millisecond,
		SyncTolerance:      time.Microsecond,
		SyncTimeout:        10 * time.Second,
		BufSize:            16,
		Affinity:           -1,
		OutFrame:           defaultOutFrame,
		InFrame:            defaultInFrame,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
