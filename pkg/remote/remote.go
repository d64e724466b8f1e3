// Package remote implements the remote variant (C10): the same
// Open/Close/AllocTXBuffer/Send/Receive/IsOpen facade as pkg/link,
// backed by an HTTP+protobuf-wire RPC client instead of a local
// transport, cycle engine, supervisor, sync waiter, and I/O map.
package remote

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
	"github.com/simeonmiteff/autd-ecat-link/pkg/link"
)

// Options configures Open, mirroring pkg/link.Options' functional-options
// shape (§5).
type Options struct {
	Addr    string
	Timeout time.Duration
	BufSize int

	OutFrame int
	InFrame  int
}

type Option func(*Options)

func WithAddr(addr string) Option { return func(o *Options) { o.Addr = addr } }

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithBufSize(n int) Option { return func(o *Options) { o.BufSize = n } }

func WithFrameSizes(outFrame, inFrame int) Option {
	return func(o *Options) { o.OutFrame = outFrame; o.InFrame = inFrame }
}

func newOptions(opts ...Option) Options {
	o := Options{
		Timeout:  5 * time.Second,
		BufSize:  16,
		OutFrame: 64,
		InFrame:  2,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Remote is the RPC-backed facade described in SPEC_FULL.md §4.10.
type Remote struct {
	client *Client
	opts   Options
	n      int

	bufferQueue chan []iomap.TxMessage
	isOpen      atomic.Bool
}

// New constructs an unopened Remote.
func New() *Remote {
	return &Remote{}
}

// Open connects to addr and initializes a buffer pool sized to
// len(geometry), marking the link open. There is no handshake beyond
// recording the address: the server-side link is assumed already open.
func (r *Remote) Open(_ context.Context, geometry link.Geometry, opts ...Option) error {
	o := newOptions(opts...)
	r.opts = o
	r.n = len(geometry)
	r.client = NewClient(o.Addr, o.Timeout)

	r.bufferQueue = make(chan []iomap.TxMessage, o.BufSize)
	for i := 0; i < o.BufSize; i++ {
		buf := make([]iomap.TxMessage, r.n)
		for s := range buf {
			buf[s] = iomap.TxMessage{Payload: make([]byte, o.OutFrame-iomap.HeaderSize)}
		}
		r.bufferQueue <- buf
	}

	r.isOpen.Store(true)
	return nil
}

// AllocTXBuffer borrows a TX buffer from the pool, blocking until one is
// available, or returns ecerr.ErrClosed once the link has been closed.
func (r *Remote) AllocTXBuffer() ([]iomap.TxMessage, error) {
	if !r.isOpen.Load() {
		return nil, ecerr.ErrClosed
	}
	buf, ok := <-r.bufferQueue
	if !ok {
		return nil, ecerr.ErrClosed
	}
	return buf, nil
}

// Send packs tx, returns the buffer to the pool, and issues SendData.
func (r *Remote) Send(tx []iomap.TxMessage) error {
	if !r.isOpen.Load() {
		return ecerr.ErrClosed
	}
	data, err := iomap.PackTx(tx, r.opts.OutFrame)
	if err != nil {
		return err
	}
	select {
	case r.bufferQueue <- tx:
	default:
	}
	_, err = r.client.SendData(data)
	return err
}

// Receive issues ReadData and deserializes the response into rx.
func (r *Remote) Receive(rx []iomap.RxMessage) error {
	if !r.isOpen.Load() {
		return ecerr.ErrClosed
	}
	data, err := r.client.ReadData()
	if err != nil {
		return err
	}
	return iomap.UnpackRx(data, rx, r.opts.InFrame)
}

// IsOpen reports whether the link is currently open.
func (r *Remote) IsOpen() bool {
	return r.isOpen.Load()
}

// Close is idempotent: it marks the link closed, closes the buffer
// pool's channel, and issues the remote ecat.Close call.
func (r *Remote) Close() error {
	if !r.isOpen.CompareAndSwap(true, false) {
		return nil
	}
	close(r.bufferQueue)
	return r.client.Close()
}
