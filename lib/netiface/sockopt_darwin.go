//go:build darwin

package netiface

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// soRecvAnyIF is macOS's SO_RECV_ANYIF (level SOL_SOCKET), which is not
// exposed by golang.org/x/sys/unix as a named constant on this
// platform. Its value and payload (a single int, 1 to enable) are fixed
// per spec.md §4.4/§9.
const soRecvAnyIF = 0x1104

// SetRecvAnyIF sets SO_RECV_ANYIF on fd, which must be set before bind
// so that packets arriving on the AWDL virtual interface are delivered
// to sockets bound to a wildcard or unrelated address.
func SetRecvAnyIF(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, soRecvAnyIF, 1)
}

// ListenControl is a net.ListenConfig.Control function that sets
// SO_REUSEADDR and SO_RECV_ANYIF on every socket lib/mdns opens.
func ListenControl(network, address string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
			ctrlErr = err
			return
		}
		ctrlErr = SetRecvAnyIF(fd)
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
