package iomap

import (
	"bytes"
	"testing"
)

func TestCopyFromRoundTrip(t *testing.T) {
	// Law L1: IOMap::new(N); copy_from(t); bytes() = [bytes(t) || 0^(N*IN_FRAME)]
	const n, outFrame, inFrame = 2, 8, 4
	m := New(n, outFrame, inFrame)
	tx := []TxMessage{
		{Header: TxHeader{MsgID: 0x01, Slot2Offset: 0x0302}, Payload: make([]byte, outFrame-HeaderSize)},
		{Header: TxHeader{MsgID: 0x02, Slot2Offset: 0x0000}, Payload: make([]byte, outFrame-HeaderSize)},
	}
	if err := m.CopyFrom(tx); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}

	want := make([]byte, 0, n*outFrame+n*inFrame)
	buf0 := make([]byte, outFrame)
	tx[0].encode(buf0)
	buf1 := make([]byte, outFrame)
	tx[1].encode(buf1)
	want = append(want, buf0...)
	want = append(want, buf1...)
	want = append(want, make([]byte, n*inFrame)...)

	if got := m.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}

func TestSingleSlaveHappyPath(t *testing.T) {
	// Scenario S1.
	const n, outFrame, inFrame = 1, 8, 2
	m := New(n, outFrame, inFrame)
	payload := make([]byte, outFrame-HeaderSize)
	payload[0] = 0x04
	payload[len(payload)-1] = 0x05
	tx := []TxMessage{{Header: TxHeader{MsgID: 0x01, Slot2Offset: 0x0302}, Payload: payload}}
	if err := m.CopyFrom(tx); err != nil {
		t.Fatalf("CopyFrom: %v", err)
	}
	b := m.Bytes()
	if b[0] != 0x01 {
		t.Errorf("b[0] = %#x, want 0x01", b[0])
	}
	if b[1] != 0x00 {
		t.Errorf("b[1] = %#x, want 0x00", b[1])
	}
	if b[2] != 0x02 || b[3] != 0x03 {
		t.Errorf("slot2 offset bytes = %#x %#x, want 0x02 0x03", b[2], b[3])
	}
	if b[4] != 0x04 {
		t.Errorf("b[4] = %#x, want 0x04", b[4])
	}
	if got := b[3+len(payload)]; got != 0x05 {
		t.Errorf("b[3+len(payload)] = %#x, want 0x05", got)
	}
}

func TestInputIsReadOnlyView(t *testing.T) {
	const n, outFrame, inFrame = 2, 4, 3
	m := New(n, outFrame, inFrame)
	copy(m.Raw()[n*outFrame:], []byte{1, 2, 3, 4, 5, 6})
	rx := m.Input()
	if len(rx) != n {
		t.Fatalf("Input() returned %d messages, want %d", len(rx), n)
	}
	if !bytes.Equal(rx[0].Raw, []byte{1, 2, 3}) {
		t.Errorf("rx[0] = %v, want [1 2 3]", rx[0].Raw)
	}
	if !bytes.Equal(rx[1].Raw, []byte{4, 5, 6}) {
		t.Errorf("rx[1] = %v, want [4 5 6]", rx[1].Raw)
	}
}

func TestClear(t *testing.T) {
	m := New(1, 4, 4)
	copy(m.Raw(), []byte{1, 2, 3, 4, 5, 6, 7, 8})
	m.Clear()
	for i, b := range m.Bytes() {
		if b != 0 {
			t.Errorf("byte %d = %d, want 0", i, b)
		}
	}
}
