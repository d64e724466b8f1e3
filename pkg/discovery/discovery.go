// Package discovery implements adapter discovery (C9): enumerate the
// host's network interfaces and pick the first one whose attached
// EtherCAT chain is all AUTD slaves.
package discovery

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/simeonmiteff/autd-ecat-link/pkg/ecerr"
	"github.com/simeonmiteff/autd-ecat-link/pkg/transport"
)

// vendorName is the vendor string every discovered slave must report.
const vendorName = "AUTD"

// Factory builds a throwaway transport to probe one interface. Tests and
// cmd/ecat-demo's local-rehearsal mode supply one backed by
// transport.Fake; production callers leave it nil and get
// transport.Default (a fresh *transport.Handle per probe).
type Factory func() transport.Transport

// Find probes every host network interface in order and returns the name
// of the first one whose chain is at least one slave, all named
// vendorName. Each probed interface is opened on a throwaway transport
// and closed before trying the next, per SPEC_FULL.md §4.9. Returns
// ecerr.ErrNoDeviceFound if none match.
func Find(factory Factory) (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	names := make([]string, len(ifaces))
	for i, iface := range ifaces {
		names[i] = iface.Name
	}
	return findAmong(names, factory)
}

// findAmong drives the probe-and-skip loop over an explicit interface
// name list, so tests can exercise it without depending on the host's
// real network interfaces.
func findAmong(names []string, factory Factory) (string, error) {
	if factory == nil {
		factory = func() transport.Transport { return transport.Default() }
	}

	for _, ifname := range names {
		t := factory()
		if err := t.Init(ifname); err != nil {
			logrus.WithField("ifname", ifname).WithError(err).Debug("discovery: init failed, skipping")
			continue
		}

		wc, err := t.ConfigInit()
		if err != nil || wc < 1 {
			_ = t.Close()
			continue
		}

		allAUTD := true
		for _, s := range t.Slaves() {
			if s.VendorName != vendorName {
				allAUTD = false
				break
			}
		}
		_ = t.Close()

		if allAUTD {
			logrus.WithField("ifname", ifname).WithField("slaves", wc).Info("discovery: found device")
			return ifname, nil
		}
	}

	return "", ecerr.ErrNoDeviceFound
}
