// Package invocation turns a prover executable and a proof file into a
// concrete command line. Each prover picks one Strategy; adding a prover
// never requires touching the orchestrator.
package invocation

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ShayCichocki/provekit/internal/exec"
)

// ErrInvalidInvocation is returned when the executable or path is empty.
var ErrInvalidInvocation = errors.New("invalid invocation")

// Strategy builds the invocation for a prover given a resolved file path.
type Strategy interface {
	// Name identifies the strategy in listings and logs.
	Name() string
	// Build returns the command line verifying path with executable.
	Build(executable, path string) (exec.Invocation, error)
}

// SingleFilePath passes the file as the only argument: "z3 proof.smt2".
type SingleFilePath struct{}

func (SingleFilePath) Name() string { return "file" }

func (SingleFilePath) Build(executable, path string) (exec.Invocation, error) {
	if err := validate(executable, path); err != nil {
		return exec.Invocation{}, err
	}
	return exec.Invocation{Name: executable, Args: []string{path}}, nil
}

// FlaggedFilePath passes fixed flags before the file: "pvs -batch spec.pvs".
type FlaggedFilePath struct {
	Flags []string
}

func (FlaggedFilePath) Name() string { return "flagged-file" }

func (s FlaggedFilePath) Build(executable, path string) (exec.Invocation, error) {
	if err := validate(executable, path); err != nil {
		return exec.Invocation{}, err
	}
	args := make([]string, 0, len(s.Flags)+1)
	args = append(args, s.Flags...)
	args = append(args, path)
	return exec.Invocation{Name: executable, Args: args}, nil
}

// DirectoryBuild verifies the session containing the file rather than the
// file itself: "isabelle build -d <dir> -a". The directory is the file's
// parent, or "." when the path has no directory component.
type DirectoryBuild struct {
	Subcommand string
	DirFlag    string
	Flags      []string
}

func (DirectoryBuild) Name() string { return "directory-build" }

func (s DirectoryBuild) Build(executable, path string) (exec.Invocation, error) {
	if err := validate(executable, path); err != nil {
		return exec.Invocation{}, err
	}

	dir := filepath.Dir(path)

	args := make([]string, 0, len(s.Flags)+3)
	if s.Subcommand != "" {
		args = append(args, s.Subcommand)
	}
	if s.DirFlag != "" {
		args = append(args, s.DirFlag)
	}
	args = append(args, dir)
	args = append(args, s.Flags...)
	return exec.Invocation{Name: executable, Args: args}, nil
}

// StdinPipe feeds the file to the prover's standard input, for toplevels
// that read a script interactively: "hol_light < proof.ml".
type StdinPipe struct {
	Flags []string
}

func (StdinPipe) Name() string { return "stdin" }

func (s StdinPipe) Build(executable, path string) (exec.Invocation, error) {
	if err := validate(executable, path); err != nil {
		return exec.Invocation{}, err
	}
	args := append([]string(nil), s.Flags...)
	return exec.Invocation{Name: executable, Args: args, StdinPath: path}, nil
}

func validate(executable, path string) error {
	if executable == "" {
		return fmt.Errorf("%w: empty executable", ErrInvalidInvocation)
	}
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidInvocation)
	}
	return nil
}

// Compile-time verification that every variant implements Strategy.
var (
	_ Strategy = SingleFilePath{}
	_ Strategy = FlaggedFilePath{}
	_ Strategy = DirectoryBuild{}
	_ Strategy = StdinPipe{}
)
