//go:build windows
// +build windows

// File: exthost/sysprocattr_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package exthost

import (
	"os/exec"
	"syscall"
)

// applyPlatformProcAttr sets CREATE_NEW_PROCESS_GROUP; the worker is
// only detached from its parent's process group on Windows.
func applyPlatformProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
