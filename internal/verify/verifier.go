// Package verify is the verification orchestrator: it resolves the proof
// file, builds the prover invocation from the registry, runs it and turns
// the outcome into a models.ProofResult.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/exec"
	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/internal/verdict"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// scratchBase is the file name (without extension) of materialized proof content.
const scratchBase = "proof_input"

// Verifier runs proofs through local prover processes.
// A Verifier holds no mutable state after construction and is safe for
// concurrent use.
type Verifier struct {
	runner      exec.Runner
	scratchDir  string
	executables map[models.ProverKind]string
	lookup      func(models.ProverKind) (registry.Prover, bool)
	logger      *zap.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithScratchDir sets the parent directory for scratch files. Empty means os.TempDir().
func WithScratchDir(dir string) Option {
	return func(v *Verifier) { v.scratchDir = dir }
}

// WithExecutable overrides the executable used for kind, e.g. an absolute
// path to a specific z3 build.
func WithExecutable(kind models.ProverKind, path string) Option {
	return func(v *Verifier) {
		if path != "" {
			v.executables[kind] = path
		}
	}
}

// WithExecutables applies several executable overrides at once.
func WithExecutables(overrides map[models.ProverKind]string) Option {
	return func(v *Verifier) {
		for k, p := range overrides {
			if p != "" {
				v.executables[k] = p
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Verifier) { v.logger = logging.OrNop(l) }
}

// withLookup replaces the registry lookup; tests use it to simulate rows
// without an invocation rule.
func withLookup(fn func(models.ProverKind) (registry.Prover, bool)) Option {
	return func(v *Verifier) { v.lookup = fn }
}

// New creates a Verifier that executes provers through runner.
func New(runner exec.Runner, opts ...Option) *Verifier {
	v := &Verifier{
		runner:      runner,
		executables: make(map[models.ProverKind]string),
		lookup:      registry.Lookup,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.Named("verify")
	return v
}

// Verify checks content with the prover identified by kind.
//
// When filename is non-empty the file is used as-is and never modified or
// removed; content is ignored. Otherwise content is written to a private
// scratch directory that is removed before Verify returns.
//
// Prover execution problems are reported in the returned result with
// StatusError, StatusTimeout or StatusFailed. An error is returned only for
// lookup failures (models.ErrProverNotFound) and scratch allocation failures
// (models.ErrResourceExhausted).
func (v *Verifier) Verify(ctx context.Context, kind models.ProverKind, content []byte, filename string) (*models.ProofResult, error) {
	prover, ok := v.lookup(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrProverNotFound, kind)
	}
	if prover.Invocation == nil {
		return nil, fmt.Errorf("%w: no invocation rule for %s", models.ErrProverNotFound, kind)
	}

	reqID := uuid.NewString()
	logger := v.logger.With(zap.String("request_id", reqID), zap.Stringer("prover", kind))

	path := filename
	if path == "" {
		scratch, cleanup, err := v.materialize(prover, content)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = scratch
	}

	start := time.Now()
	result := &models.ProofResult{Prover: kind}

	inv, err := prover.Invocation.Build(v.executable(prover), path)
	if err != nil {
		result.Status = models.StatusError
		result.Message = verdict.Message(models.StatusError)
		result.DurationMs = elapsedMs(start)
		logger.Warn("cannot build invocation", zap.Error(err))
		return result, nil
	}

	logger.Debug("running prover",
		zap.String("strategy", prover.Invocation.Name()),
		zap.Strings("argv", inv.Argv()))

	res, runErr := v.runner.Run(ctx, inv)
	result.DurationMs = elapsedMs(start)

	switch {
	case runErr == nil:
		result.Status = verdict.FromExitCode(res.ExitCode)
		result.Message = verdict.Message(result.Status)
		result.ProverOutput = string(res.Output)
		result.OutputTruncated = res.Truncated
	case errors.Is(runErr, models.ErrTimeout), errors.Is(runErr, context.DeadlineExceeded):
		result.Status = models.StatusTimeout
		result.Message = verdict.Message(models.StatusTimeout)
		if res != nil {
			result.ProverOutput = string(res.Output)
			result.OutputTruncated = res.Truncated
		}
	case errors.Is(runErr, context.Canceled):
		result.Status = models.StatusError
		result.Message = "Verification cancelled"
	default:
		result.Status = models.StatusError
		result.Message = verdict.Message(models.StatusError)
	}

	logger.Info("verification finished",
		zap.Stringer("status", result.Status),
		zap.Int64("duration_ms", result.DurationMs),
		zap.NamedError("run_error", runErr))
	return result, nil
}

// Executable reports the executable that will be used for kind.
func (v *Verifier) Executable(kind models.ProverKind) string {
	prover, ok := v.lookup(kind)
	if !ok {
		return ""
	}
	return v.executable(prover)
}

func (v *Verifier) executable(p registry.Prover) string {
	if exe, ok := v.executables[p.Kind]; ok {
		return exe
	}
	return p.Executable
}

// materialize writes content into a fresh directory so concurrent calls,
// and session-based provers that build a whole directory, never see each
// other's files.
func (v *Verifier) materialize(p registry.Prover, content []byte) (string, func(), error) {
	if len(p.Extensions) == 0 {
		return "", nil, fmt.Errorf("%w: no file extension for %s", models.ErrProverNotFound, p.Kind)
	}

	dir, err := os.MkdirTemp(v.scratchDir, "provekit-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: create scratch dir: %v", models.ErrResourceExhausted, err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			v.logger.Warn("failed to remove scratch dir", zap.String("dir", dir), zap.Error(err))
		}
	}

	path := filepath.Join(dir, scratchBase+p.Extensions[0])
	if err := os.WriteFile(path, content, 0600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: write scratch file: %v", models.ErrResourceExhausted, err)
	}
	return path, cleanup, nil
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
