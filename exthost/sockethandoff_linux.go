//go:build linux
// +build linux

// File: exthost/sockethandoff_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Live-socket hand-off via SCM_RIGHTS ancillary data over the control
// AF_UNIX socketpair. golang.org/x/sys/unix is already a teacher
// dependency (see reactor/reactor_linux.go's epoll calls); here it
// supplies Socketpair/Sendmsg/UnixRights instead of epoll syscalls.

package exthost

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// newControlSocketpair returns (parentEnd, childEnd), both SOCK_STREAM
// AF_UNIX, suitable for os/exec ExtraFiles on childEnd.
func newControlSocketpair() (parentEnd, childEnd *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("exthost: socketpair: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "exthost-ctl-parent"),
		os.NewFile(uintptr(fds[1]), "exthost-ctl-child"),
		nil
}

// sendFDWithPayload sends payload over ctl with fd attached as SCM_RIGHTS
// ancillary data, transferring ownership of fd to the peer. childPID is
// unused on Linux; it exists only so callers share one signature with
// the Windows implementation, which needs the target process identity
// for WSADuplicateSocket.
func sendFDWithPayload(ctl *os.File, payload []byte, fd uintptr, childPID int) error {
	rights := unix.UnixRights(int(fd))
	return unix.Sendmsg(int(ctl.Fd()), payload, rights, nil, 0)
}
