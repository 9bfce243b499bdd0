//go:build unix

package exec

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the prover in its own process group and makes
// cancellation kill the whole group, so helper processes spawned by wrapper
// scripts (isabelle, pvs) die with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
