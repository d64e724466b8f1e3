package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

func openTestLink(t *testing.T, n int, opts ...Option) (*Link, *transport.Fake) {
	t.Helper()
	ft := transport.NewFake(n, "AUTD")
	l := New()
	allOpts := append([]Option{
		WithTransport(ft),
		WithIfname("fake0"),
		WithSync0Cycle(time.Millisecond),
		WithSendCycle(time.Millisecond),
		WithSyncTimeout(time.Second),
		WithStateCheckInterval(20 * time.Millisecond),
		WithFrameSizes(8, 2),
	}, opts...)
	if err := l.Open(context.Background(), make(Geometry, n), allOpts...); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, ft
}

// TestOpenSendReceiveHappyPath exercises S1: a single-slave happy path
// where a sent TX payload becomes visible in the I/O map byte layout.
func TestOpenSendReceiveHappyPath(t *testing.T) {
	l, _ := openTestLink(t, 1)

	tx, err := l.AllocTXBuffer()
	if err != nil {
		t.Fatalf("AllocTXBuffer() = %v, want nil", err)
	}
	tx[0].Header.MsgID = 0x01
	for i := range tx[0].Payload {
		tx[0].Payload[i] = byte(i + 1)
	}

	if err := l.Send(tx); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the cycle engine to consume the TX buffer")
		default:
		}
		b := l.engine.IOMap.Bytes()
		if b[0] == 0x01 {
			break
		}
		time.Sleep(time.Millisecond)
	}

	rx := []iomap.RxMessage{{}}
	if err := l.Receive(rx); err != nil {
		t.Fatalf("Receive() = %v, want nil", err)
	}
	if len(rx[0].Raw) != 2 {
		t.Fatalf("Receive() rx[0].Raw len = %d, want 2", len(rx[0].Raw))
	}
}

// TestOpenInvalidSync0Cycle exercises S2: sync0_cycle = 0 fails
// InvalidCycle.
func TestOpenInvalidSync0Cycle(t *testing.T) {
	ft := transport.NewFake(1, "AUTD")
	l := New()
	err := l.Open(context.Background(), nil, WithTransport(ft), WithIfname("fake0"), WithSync0Cycle(0))

	var want *ecerr.InvalidCycleError
	if !errors.As(err, &want) {
		t.Fatalf("Open() = %v, want *ecerr.InvalidCycleError", err)
	}
}

// TestOpenInvalidSendCycle exercises the multiple-of-500µs rule of S3,
// applied to send_cycle (300µs) instead of sync0_cycle: it fails
// InvalidCycle.
func TestOpenInvalidSendCycle(t *testing.T) {
	ft := transport.NewFake(1, "AUTD")
	l := New()
	err := l.Open(context.Background(), nil, WithTransport(ft), WithIfname("fake0"), WithSendCycle(300*time.Microsecond))

	var want *ecerr.InvalidCycleError
	if !errors.As(err, &want) {
		t.Fatalf("Open() = %v, want *ecerr.InvalidCycleError", err)
	}
}

// TestOpenGeometryMismatch exercises S4: a geometry of length 2 against
// a discovered workcounter of 1 fails SlaveNotFound, and releases the
// transport it opened.
func TestOpenGeometryMismatch(t *testing.T) {
	ft := transport.NewFake(1, "AUTD")
	l := New()
	err := l.Open(context.Background(), make(Geometry, 2), WithTransport(ft), WithIfname("fake0"), WithSync0Cycle(time.Millisecond), WithSendCycle(time.Millisecond))

	var want *ecerr.SlaveNotFoundError
	if !errors.As(err, &want) {
		t.Fatalf("Open() = %v, want *ecerr.SlaveNotFoundError", err)
	}
	if want.Found != 1 || want.Expected != 2 {
		t.Fatalf("SlaveNotFoundError = %+v, want {Found:1 Expected:2}", want)
	}
}

// TestCloseWhileSendingDrainsQueue exercises S6: Close waits for an
// already-enqueued Send to drain before tearing down.
func TestCloseWhileSendingDrainsQueue(t *testing.T) {
	l, _ := openTestLink(t, 1)

	tx, err := l.AllocTXBuffer()
	if err != nil {
		t.Fatalf("AllocTXBuffer() = %v, want nil", err)
	}
	if err := l.Send(tx); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
	if l.IsOpen() {
		t.Fatal("IsOpen() = true after Close")
	}
	if n := len(l.sendQueue); n != 0 {
		t.Fatalf("send queue holds %d buffers after Close, want 0", n)
	}

	// Close is idempotent (P-invariant from §4.8).
	if err := l.Close(); err != nil {
		t.Fatalf("second Close() = %v, want nil", err)
	}
}

// TestSendAfterCloseFails checks that Send/AllocTXBuffer report
// ErrClosed once the link is closed.
func TestSendAfterCloseFails(t *testing.T) {
	l, _ := openTestLink(t, 1)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}

	if err := l.Send(make([]iomap.TxMessage, 1)); !errors.Is(err, ecerr.ErrClosed) {
		t.Fatalf("Send() after close = %v, want ecerr.ErrClosed", err)
	}
	if _, err := l.AllocTXBuffer(); !errors.Is(err, ecerr.ErrClosed) {
		t.Fatalf("AllocTXBuffer() after close = %v, want ecerr.ErrClosed", err)
	}
}
