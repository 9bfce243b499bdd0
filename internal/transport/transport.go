// Package transport abstracts where a proof is verified: in a local prover
// process or on a remote verification service.
package transport

import (
	"context"

	"github.com/ShayCichocki/provekit/internal/verify"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// Request is a single verification request.
type Request struct {
	Prover  models.ProverKind
	Content []byte
	// Filename is an existing caller-owned file. Remote transports ignore it
	// and always send Content.
	Filename string
}

// Transport verifies proofs.
type Transport interface {
	// Name identifies the transport in logs ("local", "remote").
	Name() string
	// Verify runs one verification attempt.
	Verify(ctx context.Context, req Request) (*models.ProofResult, error)
	// Healthy reports whether the transport can currently accept requests.
	Healthy(ctx context.Context) bool
	// Close releases any resources held by the transport.
	Close() error
}

// Local verifies proofs with local prover processes.
type Local struct {
	verifier *verify.Verifier
}

// NewLocal wraps a verifier as a Transport.
func NewLocal(v *verify.Verifier) *Local {
	return &Local{verifier: v}
}

func (l *Local) Name() string { return "local" }

func (l *Local) Verify(ctx context.Context, req Request) (*models.ProofResult, error) {
	return l.verifier.Verify(ctx, req.Prover, req.Content, req.Filename)
}

// Healthy is always true; individual prover binaries are checked per call.
func (l *Local) Healthy(context.Context) bool { return true }

func (l *Local) Close() error { return nil }

var _ Transport = (*Local)(nil)
