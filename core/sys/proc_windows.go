//go:build windows
// +build windows

package sys

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the direct child. Grandchildren that keep the pipes
// open are covered by the grace period in Run.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	_ = cmd.Process.Kill()
}
