//go:build !unix

package exec

import "os/exec"

// setProcessGroup is a no-op where process groups are unavailable;
// exec.CommandContext already kills the direct child on cancellation.
func setProcessGroup(cmd *exec.Cmd) {}
