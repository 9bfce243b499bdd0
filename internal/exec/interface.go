// Package exec runs prover processes with a bounded lifetime and bounded output capture.
package exec

import (
	"context"
	"time"
)

// Invocation is a fully resolved prover command line.
type Invocation struct {
	// Name is the executable to run, resolved through PATH when it has no separator.
	Name string
	// Args are the arguments following the executable.
	Args []string
	// Dir is the working directory. Empty means the caller's directory.
	Dir string
	// StdinPath, when set, is opened and connected to the process's standard input.
	StdinPath string
}

// Argv returns the executable followed by its arguments.
func (i Invocation) Argv() []string {
	argv := make([]string, 0, len(i.Args)+1)
	argv = append(argv, i.Name)
	return append(argv, i.Args...)
}

// Result is what a completed process left behind.
type Result struct {
	// ExitCode is the process exit status. Signal termination is reported as 1.
	ExitCode int
	// Output is the interleaved stdout/stderr, capped at the runner's output limit.
	Output []byte
	// Truncated is set when output beyond the limit was discarded.
	Truncated bool
	// Duration is the wall-clock time between start and exit.
	Duration time.Duration
}

// Runner executes a prover invocation.
// This abstraction allows faking process execution in tests.
type Runner interface {
	// Run starts the invocation and waits for it to finish.
	//
	// Spawn and wait failures are reported as models.ErrSubprocessFailed.
	// Exceeding the runner's timeout kills the process and returns
	// models.ErrTimeout along with whatever output was captured.
	Run(ctx context.Context, inv Invocation) (*Result, error)
}
