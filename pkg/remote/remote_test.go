package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/iomap"
	"github.com/simeonmiteff/autd-ecat-link/pkg/link"
)

// newTestServer fakes the three RPC endpoints described in
// SPEC_FULL.md §4.10: ecat.Close always succeeds, ecat.SendData echoes
// back Success=true, ecat.ReadData returns a fixed two-slave RX payload.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ecat.Close", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/ecat.SendData", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if _, err := unmarshalTxRawData(body); err != nil {
			t.Errorf("server: bad TxRawData: %v", err)
		}
		w.Write(marshalSendResponse(SendResponse{Success: true}))
	})
	mux.HandleFunc("/ecat.ReadData", func(w http.ResponseWriter, r *http.Request) {
		rx := []iomap.RxMessage{{Raw: []byte{0xaa, 0xbb}}, {Raw: []byte{0xcc, 0xdd}}}
		data, err := iomap.PackRx(rx, 2)
		if err != nil {
			t.Fatalf("PackRx: %v", err)
		}
		w.Write(marshalRxRawData(RxRawData{Data: data}))
	})
	return httptest.NewServer(mux)
}

func TestRemoteSendReceiveRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	r := New()
	addr := strings.TrimPrefix(srv.URL, "http://")
	if err := r.Open(context.Background(), make(link.Geometry, 2), WithAddr(addr), WithTimeout(time.Second), WithFrameSizes(8, 2)); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	defer r.Close()

	tx, err := r.AllocTXBuffer()
	if err != nil {
		t.Fatalf("AllocTXBuffer() = %v, want nil", err)
	}
	tx[0].Header.MsgID = 0x9
	tx[1].Header.MsgID = 0xa

	if err := r.Send(tx); err != nil {
		t.Fatalf("Send() = %v, want nil", err)
	}

	rx := make([]iomap.RxMessage, 2)
	if err := r.Receive(rx); err != nil {
		t.Fatalf("Receive() = %v, want nil", err)
	}
	if rx[0].Raw[0] != 0xaa || rx[1].Raw[0] != 0xcc {
		t.Fatalf("Receive() rx = %+v, want slave 0 starting 0xaa, slave 1 starting 0xcc", rx)
	}
}

func TestBlockingWrapperSatisfiesFacade(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	b := NewBlocking(New())
	if err := b.Open(context.Background(), nil, WithAddr(addr)); err != nil {
		t.Fatalf("Open() = %v, want nil", err)
	}
	if !b.IsOpen() {
		t.Fatal("IsOpen() = false after Open")
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close() = %v, want nil", err)
	}
}
