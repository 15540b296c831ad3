//go:build linux
// +build linux

// File: exthost/sysprocattr_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package exthost

import "os/exec"

// applyPlatformProcAttr is a no-op on Linux; the detached process
// group is only requested on Windows.
func applyPlatformProcAttr(cmd *exec.Cmd) {}
