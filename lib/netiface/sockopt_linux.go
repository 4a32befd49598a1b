//go:build linux

package netiface

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// ListenControl is a net.ListenConfig.Control function that sets
// SO_REUSEADDR on every socket lib/mdns opens. SO_RECV_ANYIF is a
// macOS-only knob needed to receive on the AWDL virtual interface, so
// Linux doesn't set it.
func ListenControl(network, address string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		ctrlErr = unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
