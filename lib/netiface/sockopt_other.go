//go:build !darwin && !linux

package netiface

import "syscall"

// ListenControl is a no-op on platforms other than macOS/Linux. This
// bridge's documented startup precondition (spec.md §4.9) is that the
// host is macOS or Linux with an AWDL interface present; anything else
// fails fast at StartAWDL, so there is no socket option to set here.
func ListenControl(network, address string, c syscall.RawConn) error {
	return nil
}
