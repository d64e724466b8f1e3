//go:build !linux

package transport

import (
	"errors"
	"time"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/ecstate"
)

// ErrUnsupportedPlatform is returned by every unsupported method once
// Init has already reported failure; present so callers that ignore
// Init's error still get a clear answer rather than a zero value.
var ErrUnsupportedPlatform = errors.New("transport: raw AF_PACKET framing is only implemented on linux")

// unsupported is the Default transport on non-Linux hosts: raw AF_PACKET
// framing has no portable equivalent, so every call fails instead of
// panicking on a nil handle. Callers that want to run without real
// hardware should inject a *Fake via link.WithTransport instead.
type unsupported struct{}

// Default reports that no real transport is available on this platform.
func Default() Transport {
	return unsupported{}
}

func (unsupported) Init(ifname string) error { return &ecerr.NoSocketConnectionError{Ifname: ifname} }
func (unsupported) Close() error             { return nil }
func (unsupported) ConfigInit() (int, error) { return 0, ErrUnsupportedPlatform }
func (unsupported) ConfigDC(cycle time.Duration) error { return ErrUnsupportedPlatform }
func (unsupported) ConfigMap(buf []byte) error         { return ErrUnsupportedPlatform }
func (unsupported) StateCheck(slave int, target ecstate.State, timeout time.Duration) (ecstate.State, error) {
	return ecstate.None, ErrUnsupportedPlatform
}
func (unsupported) ReadState() error       { return ErrUnsupportedPlatform }
func (unsupported) WriteState(slave int) error { return ErrUnsupportedPlatform }
func (unsupported) FetchState(idx int) ecstate.State { return ecstate.None }
func (unsupported) SetState(idx int, s ecstate.State) {}
func (unsupported) ReconfigSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	return ecstate.None, ErrUnsupportedPlatform
}
func (unsupported) RecoverSlave(idx int, timeout time.Duration) (ecstate.State, error) {
	return ecstate.None, ErrUnsupportedPlatform
}
func (unsupported) SendProcessData() error { return ErrUnsupportedPlatform }
func (unsupported) ReceiveProcessData(timeout time.Duration) (int, error) {
	return 0, ErrUnsupportedPlatform
}
func (unsupported) FRMW(register uint16, length int, buf []byte, timeout time.Duration) (int, error) {
	return 0, ErrUnsupportedPlatform
}
func (unsupported) FPRD(slave int, register uint16, length int, buf []byte, timeout time.Duration) (int, error) {
	return 0, ErrUnsupportedPlatform
}
func (unsupported) DCTime() int64        { return 0 }
func (unsupported) ExpectedWKC() int32   { return 0 }
func (unsupported) Slaves() []SlaveInfo  { return nil }
