// Package iomap implements the EtherCAT process-image I/O map: a single
// contiguous byte buffer partitioned into a per-slave output (TX) region
// followed by a per-slave input (RX) region, plus the packed TX/RX
// message codec exposed to the application.
//
// The struct-mirrors-wire-layout idiom here (fixed byte offsets annotated
// field by field) follows the teacher's RawTCPInfo/Unpack style in
// pkg/tcpinfo/tcpinfo_linux.go, applied to a hand-rolled packed header
// instead of a syscall struct.
package iomap

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// HeaderSize is the size in bytes of a TX message header: message-id
// byte, reserved byte, and a little-endian 16-bit slot-2 offset.
const HeaderSize = 4

// TxHeader is the packed header prefixed to every TX message.
type TxHeader struct {
	MsgID       uint8
	Reserved    uint8
	Slot2Offset uint16
}

// TxMessage is one slave's worth of output data: a header plus a
// fixed-size payload.
type TxMessage struct {
	Header  TxHeader
	Payload []byte
}

// encode writes m into buf, which must be exactly frameSize bytes
// (HeaderSize + len(Payload)).
func (m TxMessage) encode(buf []byte) {
	buf[0] = m.Header.MsgID
	buf[1] = m.Header.Reserved
	binary.LittleEndian.PutUint16(buf[2:4], m.Header.Slot2Offset)
	copy(buf[HeaderSize:], m.Payload)
}

// RxMessage is a read-only view into one slave's input region.
type RxMessage struct {
	Raw []byte
}

// decodeHeader reads a TxHeader from the first HeaderSize bytes of buf,
// the inverse of the header part of encode. Used by UnpackTx, the inverse
// of the remote variant's PackTx, which carries TX/RX messages over the
// wire instead of through a shared memory-mapped I/O map.
func decodeHeader(buf []byte) TxHeader {
	return TxHeader{
		MsgID:       buf[0],
		Reserved:    buf[1],
		Slot2Offset: binary.LittleEndian.Uint16(buf[2:4]),
	}
}

// PackTx serializes tx (one message per slave, every payload
// outFrame-HeaderSize bytes) into a flat byte slice using the same
// per-slave frame layout CopyFrom writes into the I/O map's output
// region, for the remote variant's wire transport.
func PackTx(tx []TxMessage, outFrame int) ([]byte, error) {
	buf := make([]byte, len(tx)*outFrame)
	for i, msg := range tx {
		if HeaderSize+len(msg.Payload) != outFrame {
			return nil, fmt.Errorf("iomap: PackTx slave %d payload is %d bytes, frame is %d bytes", i, len(msg.Payload), outFrame)
		}
		msg.encode(buf[i*outFrame : (i+1)*outFrame])
	}
	return buf, nil
}

// UnpackTx is PackTx's inverse.
func UnpackTx(buf []byte, n, outFrame int) ([]TxMessage, error) {
	if len(buf) != n*outFrame {
		return nil, fmt.Errorf("iomap: UnpackTx got %d bytes, want %d", len(buf), n*outFrame)
	}
	out := make([]TxMessage, n)
	for i := range out {
		frame := buf[i*outFrame : (i+1)*outFrame]
		payload := make([]byte, outFrame-HeaderSize)
		copy(payload, frame[HeaderSize:])
		out[i] = TxMessage{Header: decodeHeader(frame), Payload: payload}
	}
	return out, nil
}

// PackRx is the RX-side equivalent of PackTx, flattening one RxMessage
// per slave (each inFrame bytes) into a single byte slice.
func PackRx(rx []RxMessage, inFrame int) ([]byte, error) {
	buf := make([]byte, len(rx)*inFrame)
	for i, msg := range rx {
		if len(msg.Raw) != inFrame {
			return nil, fmt.Errorf("iomap: PackRx slave %d raw is %d bytes, frame is %d bytes", i, len(msg.Raw), inFrame)
		}
		copy(buf[i*inFrame:(i+1)*inFrame], msg.Raw)
	}
	return buf, nil
}

// UnpackRx is PackRx's inverse, writing into the caller-supplied rx
// slice (which must already have len(rx) == n and, optionally,
// preallocated Raw buffers of length inFrame).
func UnpackRx(buf []byte, rx []RxMessage, inFrame int) error {
	if len(buf) != len(rx)*inFrame {
		return fmt.Errorf("iomap: UnpackRx got %d bytes, want %d", len(buf), len(rx)*inFrame)
	}
	for i := range rx {
		if len(rx[i].Raw) != inFrame {
			rx[i].Raw = make([]byte, inFrame)
		}
		copy(rx[i].Raw, buf[i*inFrame:(i+1)*inFrame])
	}
	return nil
}

// IOMap is the process-image buffer shared between the application and
// the cycle engine. The output region occupies bytes [0, N*outFrame);
// the input region occupies [N*outFrame, N*outFrame+N*inFrame). A mutex
// guards the buffer for the short memcpy done by CopyFrom/Receive; it is
// never held across a blocking operation.
type IOMap struct {
	mu       sync.Mutex
	buf      []byte
	n        int
	outFrame int
	inFrame  int
}

// New allocates a zeroed I/O map for n slaves, each with an outFrame-byte
// output frame and an inFrame-byte input frame.
func New(n, outFrame, inFrame int) *IOMap {
	return &IOMap{
		buf:      make([]byte, n*outFrame+n*inFrame),
		n:        n,
		outFrame: outFrame,
		inFrame:  inFrame,
	}
}

// CopyFrom encodes tx (which must have exactly N entries, each with a
// payload sized outFrame-HeaderSize bytes) into the output region,
// bit-exact with the wire layout described in the module's component
// design for the I/O map.
func (m *IOMap) CopyFrom(tx []TxMessage) error {
	if len(tx) != m.n {
		return fmt.Errorf("iomap: CopyFrom got %d messages, want %d", len(tx), m.n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, msg := range tx {
		if HeaderSize+len(msg.Payload) != m.outFrame {
			return fmt.Errorf("iomap: slave %d payload is %d bytes, frame is %d bytes", i, len(msg.Payload), m.outFrame)
		}
		msg.encode(m.buf[i*m.outFrame : (i+1)*m.outFrame])
	}
	return nil
}

// Input returns a read-only view of the input region as one RxMessage
// per slave. The returned slices alias the map's internal buffer; callers
// must not retain them across a Clear.
func (m *IOMap) Input() []RxMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	base := m.n * m.outFrame
	out := make([]RxMessage, m.n)
	for i := 0; i < m.n; i++ {
		start := base + i*m.inFrame
		out[i] = RxMessage{Raw: m.buf[start : start+m.inFrame]}
	}
	return out
}

// Clear zeroes the whole buffer. Used when re-opening the link without a
// full transport re-init.
func (m *IOMap) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.buf {
		m.buf[i] = 0
	}
}

// ZeroInput zeroes a single slave's input region (slave is a zero-based
// index in [0, N)), so stale telemetry is not read back by the
// application while the slave is marked lost.
func (m *IOMap) ZeroInput(slave int) {
	if slave < 0 || slave >= m.n {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	start := m.n*m.outFrame + slave*m.inFrame
	for i := start; i < start+m.inFrame; i++ {
		m.buf[i] = 0
	}
}

// Bytes returns a copy of the entire underlying buffer, output region
// followed by input region. Exposed for tests (Law L1) and for the link
// facade's Receive; the transport's ConfigMap is given Raw instead.
func (m *IOMap) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.buf))
	copy(out, m.buf)
	return out
}

// Raw returns the live underlying buffer without copying, for the
// transport adapter's ConfigMap call, which needs a pointer into this
// exact memory. Callers outside the transport must prefer Bytes/Input.
func (m *IOMap) Raw() []byte {
	return m.buf
}

// OutFrame and InFrame report the configured per-slave frame sizes.
func (m *IOMap) OutFrame() int { return m.outFrame }
func (m *IOMap) InFrame() int  { return m.inFrame }
func (m *IOMap) N() int        { return m.n }
