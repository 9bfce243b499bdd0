// Package client is the verification session: it owns the transports, the
// timeout and the subprocess-fallback switch, and is the entry point used by
// the CLI and by embedding hosts.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ShayCichocki/provekit/internal/exec"
	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/internal/transport"
	"github.com/ShayCichocki/provekit/internal/verify"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// DefaultTimeout is the verification budget used when Config.Timeout is zero.
const DefaultTimeout = 300_000 * time.Millisecond

// Recorder receives every result the client produces. Recording failures
// are logged and never change the verdict returned to the caller.
type Recorder interface {
	Record(ctx context.Context, result *models.ProofResult) error
}

// Config holds the session settings.
type Config struct {
	// Endpoint is the remote verification service URL. Empty means no remote.
	Endpoint string
	// Timeout bounds each verification. Zero means DefaultTimeout.
	Timeout time.Duration
	// UseSubprocessFallback allows local prover processes when the remote
	// service is missing, unhealthy or failing.
	UseSubprocessFallback bool
	// ExecutableOverrides replaces registry executables per prover.
	ExecutableOverrides map[models.ProverKind]string
	// OutputLimit caps captured prover output in bytes. Zero means the exec default.
	OutputLimit int
	// ScratchDir is the parent of scratch directories. Empty means os.TempDir().
	ScratchDir string
	// RateLimit and Burst throttle remote requests. Zero disables throttling.
	RateLimit float64
	Burst     int
}

// DefaultConfig returns a local-only configuration with fallback enabled.
func DefaultConfig() Config {
	return Config{
		Timeout:               DefaultTimeout,
		UseSubprocessFallback: true,
	}
}

// Client verifies proofs through the remote service when available and
// through local provers otherwise.
//
// The fallback flag may be toggled at any time. Everything else is fixed
// at construction.
type Client struct {
	endpoint string
	timeout  time.Duration
	fallback atomic.Bool

	remote   transport.Transport
	local    transport.Transport
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	recorder Recorder
	runner   exec.Runner
	remote   transport.Transport
}

// WithLogger sets the logger used by the client and its transports.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder attaches a result sink.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithRunner replaces the local process runner.
func WithRunner(r exec.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithRemote replaces the remote transport built from Config.Endpoint.
func WithRemote(t transport.Transport) Option {
	return func(o *options) { o.remote = t }
}

// New builds a Client. An endpoint that is not an absolute http(s) URL
// fails with models.ErrInitFailed.
func New(cfg Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger)

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %s", models.ErrInitFailed, timeout)
	}

	runner := o.runner
	if runner == nil {
		runner = exec.NewRunner(
			exec.WithTimeout(timeout),
			exec.WithOutputLimit(cfg.OutputLimit),
			exec.WithLogger(logger),
		)
	}

	verifier := verify.New(runner,
		verify.WithScratchDir(cfg.ScratchDir),
		verify.WithExecutables(cfg.ExecutableOverrides),
		verify.WithLogger(logger),
	)

	c := &Client{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		local:    transport.NewLocal(verifier),
		recorder: o.recorder,
		logger:   logger.Named("client"),
	}
	c.fallback.Store(cfg.UseSubprocessFallback)

	switch {
	case o.remote != nil:
		c.remote = o.remote
	case cfg.Endpoint != "":
		remote, err := transport.NewRemote(transport.RemoteConfig{
			Endpoint:  cfg.Endpoint,
			Timeout:   timeout,
			RateLimit: cfg.RateLimit,
			Burst:     cfg.Burst,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		c.remote = remote
	}

	return c, nil
}

// Endpoint returns the configured remote endpoint, possibly empty.
func (c *Client) Endpoint() string { return c.endpoint }

// Timeout returns the per-verification budget.
func (c *Client) Timeout() time.Duration { return c.timeout }

// SubprocessFallback reports whether local provers may be used.
func (c *Client) SubprocessFallback() bool { return c.fallback.Load() }

// SetSubprocessFallback enables or disables local prover execution.
func (c *Client) SetSubprocessFallback(enabled bool) { c.fallback.Store(enabled) }

// HealthCheck reports whether the client can verify anything right now:
// the remote service answers its health probe, or local fallback is enabled.
func (c *Client) HealthCheck(ctx context.Context) bool {
	if c.remote != nil && c.remote.Healthy(ctx) {
		return true
	}
	return c.fallback.Load()
}

// RemoteHealthy reports the remote service's health alone.
func (c *Client) RemoteHealthy(ctx context.Context) bool {
	return c.remote != nil && c.remote.Healthy(ctx)
}

// VerifyProof verifies content (or the existing file filename) with kind.
//
// The remote service is used when configured and healthy. When it is
// missing, unhealthy or fails, local provers are used if fallback is
// enabled; otherwise models.ErrConnectionFailed or models.ErrRequestFailed
// is returned.
func (c *Client) VerifyProof(ctx context.Context, kind models.ProverKind, content []byte, filename string) (*models.ProofResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrProverNotFound, kind)
	}
	req := transport.Request{Prover: kind, Content: content, Filename: filename}

	t, err := c.pick(ctx)
	if err != nil {
		return nil, err
	}

	result, err := t.Verify(ctx, req)
	if err != nil && t != c.local && c.fallback.Load() && fallbackable(err) {
		c.logger.Warn("remote verification failed, falling back to local prover",
			zap.Stringer("prover", kind), zap.Error(err))
		result, err = c.local.Verify(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	c.record(ctx, result)
	return result, nil
}

// pick chooses the transport for one request.
func (c *Client) pick(ctx context.Context) (transport.Transport, error) {
	if c.remote != nil {
		if c.remote.Healthy(ctx) {
			return c.remote, nil
		}
		if c.fallback.Load() {
			c.logger.Debug("remote unhealthy, using local provers", zap.String("endpoint", c.endpoint))
			return c.local, nil
		}
		return nil, fmt.Errorf("%w: %s is unhealthy and subprocess fallback is disabled",
			models.ErrConnectionFailed, c.remoteName())
	}
	if c.fallback.Load() {
		return c.local, nil
	}
	return nil, fmt.Errorf("%w: no remote endpoint configured and subprocess fallback is disabled",
		models.ErrConnectionFailed)
}

func (c *Client) remoteName() string {
	if c.endpoint != "" {
		return c.endpoint
	}
	return c.remote.Name()
}

// fallbackable reports whether a remote error should be retried locally.
// Bad requests for unknown provers fail the same way locally.
func fallbackable(err error) bool {
	if errors.Is(err, models.ErrProverNotFound) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func (c *Client) record(ctx context.Context, result *models.ProofResult) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, result); err != nil {
		c.logger.Warn("failed to record result", zap.Error(err))
	}
}

// Close releases the transports. The recorder is owned by the caller.
func (c *Client) Close() error {
	var errs []error
	if c.remote != nil {
		errs = append(errs, c.remote.Close())
	}
	errs = append(errs, c.local.Close())
	return errors.Join(errs...)
}
