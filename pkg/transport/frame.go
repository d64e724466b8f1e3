// frame.go holds the minimal wire-level pieces used by the Linux
// AF_PACKET implementation (transport_linux.go): the Ethernet/EtherCAT
// header this module writes on the wire, and the small set of EtherCAT
// command codes it issues. The in-memory fake (transport_fake.go) uses
// none of them.
// This is deliberately not a conformant EtherCAT frame encoder/decoder
// (see SPEC_FULL.md §1); just enough structure to carry a command,
// register, and payload to a slave and read back a working counter.
package transport

import "encoding/binary"

// etherTypeEtherCAT is the EtherCAT EtherType (ETG.1000.4), used so a
// real NIC or packet capture recognizes these as EtherCAT frames even
// though the datagram payload format here is simplified.
const etherTypeEtherCAT = 0x88A4

// EtherCAT command codes (ETG.1000.4 table), the subset this adapter
// issues.
const (
	cmdBRD  = 0x07 // broadcast read
	cmdFPRD = 0x04 // fixed-address read
	cmdFPWR = 0x05 // fixed-address write
	cmdFRMW = 0x0e // fixed-address read, multiple write
	cmdLRD  = 0x0a // logical read (process data)
	cmdLWR  = 0x0b // logical write (process data)
	cmdLRW  = 0x0c // logical read/write (process data)
)

// datagramHeaderSize is the size in bytes of the minimal datagram header
// this module prepends to every outgoing frame: command (1), slave
// address (2), register (2), length (2).
const datagramHeaderSize = 7

// broadcastEthAddr is the destination MAC address used for every frame:
// EtherCAT frames are always sent to the segment broadcast address and
// rely on slaves processing-through rather than Ethernet-level
// addressing.
var broadcastEthAddr = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// encodeDatagram writes a command datagram (header + payload) into buf,
// which must be at least datagramHeaderSize+len(payload) bytes.
func encodeDatagram(buf []byte, cmd byte, slave int, register uint16, payload []byte) int {
	buf[0] = cmd
	binary.LittleEndian.PutUint16(buf[1:3], uint16(slave))
	binary.LittleEndian.PutUint16(buf[3:5], register)
	binary.LittleEndian.PutUint16(buf[5:7], uint16(len(payload)))
	n := copy(buf[datagramHeaderSize:], payload)
	return datagramHeaderSize + n
}

// decodeWKC reads the 2-byte little-endian working counter trailing a
// received frame of the given length.
func decodeWKC(buf []byte, length int) int {
	if length < 2 {
		return 0
	}
	return int(binary.LittleEndian.Uint16(buf[length-2 : length]))
}
