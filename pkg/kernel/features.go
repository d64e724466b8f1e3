//go:build linux

// Package kernel gates OS-level transport features behind the running
// kernel's version, the way the teacher's pkg/linux/init.go gates
// TCP_INFO struct-size variants: walk a version-sorted table from newest
// to oldest and set every flag at or below the first match.
package kernel

import (
	"fmt"

	"github.com/docker/docker/pkg/parsers/kernel"
)

var hostKernelVersion *kernel.VersionInfo

// HWTimestamping reports whether the running kernel supports
// SO_TIMESTAMPNS on AF_PACKET sockets (available since Linux 2.6.30),
// used by pkg/transport to decide whether to request hardware RX
// timestamps.
var HWTimestamping bool

type versionGate struct {
	version kernel.VersionInfo
	flag    *bool
}

var gates = []versionGate{
	{version: kernel.VersionInfo{Kernel: 2, Major: 6, Minor: 30}, flag: &HWTimestamping},
}

func init() {
	var err error
	if hostKernelVersion, err = kernel.GetKernelVersion(); err != nil {
		panic(fmt.Errorf("kernel: error getting kernel version: %s", err))
	}
	adaptToKernelVersion()
}

func adaptToKernelVersion() {
	for i := len(gates) - 1; i >= 0; i-- {
		if kernel.CompareKernelVersion(*hostKernelVersion, gates[i].version) >= 0 {
			for j := i; j >= 0; j-- {
				*gates[j].flag = true
			}
			return
		}
		*gates[i].flag = false
	}
}
