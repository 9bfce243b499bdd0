package exec

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/pkg/models"
)

const (
	// DefaultTimeout bounds a single prover run.
	DefaultTimeout = 300_000 * time.Millisecond
	// DefaultOutputLimit caps captured stdout/stderr.
	DefaultOutputLimit = 4 << 20
	// DefaultWaitDelay bounds how long Wait blocks on pipes held open by
	// grandchildren after the prover itself has exited or been killed.
	DefaultWaitDelay = 2 * time.Second
)

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	timeout     time.Duration
	outputLimit int
	waitDelay   time.Duration
	logger      *zap.Logger
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithTimeout sets the per-run time budget. Zero or negative disables it.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) { r.timeout = d }
}

// WithOutputLimit sets the maximum number of output bytes retained.
func WithOutputLimit(n int) Option {
	return func(r *ExecRunner) {
		if n > 0 {
			r.outputLimit = n
		}
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) { r.waitDelay = d }
}

// WithLogger sets the logger used for process lifecycle messages.
func WithLogger(l *zap.Logger) Option {
	return func(r *ExecRunner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a new ExecRunner.
func NewRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		timeout:     DefaultTimeout,
		outputLimit: DefaultOutputLimit,
		waitDelay:   DefaultWaitDelay,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("exec")
	return r
}

// Timeout returns the configured per-run time budget.
func (r *ExecRunner) Timeout() time.Duration {
	return r.timeout
}

// Run executes the invocation and waits for it, enforcing the timeout.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Name == "" {
		return nil, fmt.Errorf("%w: empty executable name", models.ErrSubprocessFailed)
	}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeoutCause(ctx, r.timeout, models.ErrTimeout)
	}
	defer cancel()

	// Already expired or cancelled: report it the same way as a mid-run kill.
	if err := r.interrupted(runCtx, inv); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(runCtx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.WaitDelay = r.waitDelay
	setProcessGroup(cmd)

	out := newCappedBuffer(r.outputLimit)
	cmd.Stdout = out
	cmd.Stderr = out

	if inv.StdinPath != "" {
		f, err := os.Open(inv.StdinPath)
		if err != nil {
			return nil, fmt.Errorf("%w: open stdin %s: %v", models.ErrSubprocessFailed, inv.StdinPath, err)
		}
		defer f.Close()
		cmd.Stdin = f
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := r.interrupted(runCtx, inv); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: start %s: %v", models.ErrSubprocessFailed, inv.Name, err)
	}
	r.logger.Debug("process started",
		zap.Strings("argv", inv.Argv()),
		zap.Int("pid", cmd.Process.Pid))

	waitErr := cmd.Wait()
	res := &Result{
		Output:    out.Bytes(),
		Truncated: out.Truncated(),
		Duration:  time.Since(start),
	}

	// A cancelled context means the process was killed by us; its exit
	// status is meaningless.
	if err := r.interrupted(runCtx, inv); err != nil {
		return res, err
	}

	res.ExitCode = exitCode(cmd, waitErr)
	if res.ExitCode < 0 {
		return res, fmt.Errorf("%w: wait %s: %v", models.ErrSubprocessFailed, inv.Name, waitErr)
	}

	r.logger.Debug("process exited",
		zap.String("executable", inv.Name),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Bool("truncated", res.Truncated))
	return res, nil
}

// interrupted classifies a done context: models.ErrTimeout when the
// runner's own budget ran out, otherwise models.ErrSubprocessFailed wrapping
// the cause (context.Canceled or the caller's context.DeadlineExceeded).
// It returns nil while runCtx is live.
func (r *ExecRunner) interrupted(runCtx context.Context, inv Invocation) error {
	if runCtx.Err() == nil {
		return nil
	}
	cause := context.Cause(runCtx)
	if errors.Is(cause, models.ErrTimeout) {
		r.logger.Info("process timed out",
			zap.String("executable", inv.Name),
			zap.Duration("timeout", r.timeout))
		return fmt.Errorf("%w: %s exceeded %s", models.ErrTimeout, inv.Name, r.timeout)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrSubprocessFailed, inv.Name, cause)
}

// exitCode extracts the numeric exit status. Processes terminated by a
// signal report 1. A negative value means no status could be determined.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		return 1
	}

	// ErrWaitDelay: the process exited but a grandchild kept the pipes open.
	if errors.Is(waitErr, exec.ErrWaitDelay) && cmd.ProcessState != nil {
		if code := cmd.ProcessState.ExitCode(); code >= 0 {
			return code
		}
		return 1
	}

	return -1
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
