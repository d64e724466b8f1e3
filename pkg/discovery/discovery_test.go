package discovery

import (
	"errors"
	"testing"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

// TestFindSkipsWrongInterfaceThenMatches exercises the probe-and-skip
// loop: the fake only accepts one particular interface name, so
// findAmong must try (and discard) every name before it until it
// reaches the matching one.
func TestFindSkipsWrongInterfaceThenMatches(t *testing.T) {
	var tried []string
	factory := func() transport.Transport {
		f := transport.NewFake(2, "AUTD")
		f.RestrictIfname("eth7")
		return f
	}

	names := []string{"eth0", "eth1", "eth7"}
	ifname, err := findAmongTrace(names, factory, &tried)
	if err != nil {
		t.Fatalf("findAmong() = %v, want nil", err)
	}
	if ifname != "eth7" {
		t.Fatalf("findAmong() ifname = %q, want eth7", ifname)
	}
	if len(tried) != 3 {
		t.Fatalf("tried %v interfaces, want all 3 probed in order", tried)
	}
}

// findAmongTrace wraps findAmong with a factory that records which
// interface name each transport was probed against, confirming the
// skip-then-match order without depending on real host interfaces.
func findAmongTrace(names []string, factory Factory, tried *[]string) (string, error) {
	return findAmong(names, func() transport.Transport {
		t := factory()
		return &tracingTransport{Transport: t, tried: tried}
	})
}

type tracingTransport struct {
	transport.Transport
	tried *[]string
}

func (t *tracingTransport) Init(ifname string) error {
	*t.tried = append(*t.tried, ifname)
	return t.Transport.Init(ifname)
}

// TestFindNoDeviceFound exercises the "nothing matches" path: every
// probe is rejected by findAmong's vendor-name check, since the fake's
// slaves are named "NOT-AUTD".
func TestFindNoDeviceFound(t *testing.T) {
	factory := func() transport.Transport {
		return transport.NewFake(1, "NOT-AUTD")
	}

	_, err := findAmong([]string{"eth0", "eth1"}, factory)
	if !errors.Is(err, ecerr.ErrNoDeviceFound) {
		t.Fatalf("findAmong() = %v, want ecerr.ErrNoDeviceFound", err)
	}
}
