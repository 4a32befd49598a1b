// Package netiface selects the network interfaces the mDNS responder
// (lib/mdns) binds to, including Apple's AWDL virtual interface on
// macOS.
package netiface

import (
	"errors"
	"net"
	"runtime"
)

// AWDLName is the interface name Apple's Wireless Direct Link exposes
// itself under.
const AWDLName = "awdl0"

// ErrUnsupportedPlatform is returned by the default StartAWDL on
// platforms other than macOS and Linux.
var ErrUnsupportedPlatform = errors.New("netiface: AWDL activation is not supported on this platform")

// ErrNoAWDLInterface is returned when no interface named awdl0 exists.
var ErrNoAWDLInterface = errors.New("netiface: no awdl0 interface present")

// StartAWDL and StopAWDL are the platform hook named as an external
// collaborator in spec.md §6: macOS needs a native call to actually
// instantiate the AWDL interface before traffic arrives on it, and to
// tear it down again on shutdown. The portable defaults are no-ops: the
// default StartAWDL returns nil on macOS and Linux and
// ErrUnsupportedPlatform elsewhere, and the default StopAWDL always
// returns nil. Platform-specific build-tagged
// files (not part of this module, since their implementation is native)
// are expected to replace these vars at init time.
var (
	StartAWDL = defaultStartAWDL
	StopAWDL  = defaultStopAWDL
)

func defaultStartAWDL() error {
	if runtime.GOOS != "darwin" && runtime.GOOS != "linux" {
		return ErrUnsupportedPlatform
	}
	return nil
}

func defaultStopAWDL() error {
	return nil
}

// Candidates returns the interfaces lib/mdns should bind sockets on:
// up, multicast-capable, not loopback, not point-to-point, plus awdl0
// specifically (which on macOS may report flags that would otherwise
// exclude it before StartAWDL has run).
func Candidates() ([]net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var out []net.Interface
	for _, ifi := range ifaces {
		if ifi.Name == AWDLName {
			out = append(out, ifi)
			continue
		}
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		if ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if ifi.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ifi.Flags&net.FlagPointToPoint != 0 {
			continue
		}
		out = append(out, ifi)
	}
	return out, nil
}

// AWDLInterface returns the awdl0 interface, or ErrNoAWDLInterface if
// the host has none.
func AWDLInterface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		if ifaces[i].Name == AWDLName {
			return &ifaces[i], nil
		}
	}
	return nil, ErrNoAWDLInterface
}
