package history

import (
	"context"
	"io"
	"time"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// Reader lists stored results.
type Reader interface {
	Recent(ctx context.Context, limit int, filter Filter) ([]Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	Stats(ctx context.Context) ([]ProverStats, error)
}

// Store is the full history backend used by the CLI.
type Store interface {
	io.Closer
	client.Recorder
	Reader
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store           = (*DB)(nil)
	_ client.Recorder = (*DB)(nil)
)

// Verdicts is a convenience for building a status filter.
func Verdicts(s models.ProofStatus) *models.ProofStatus { return &s }
