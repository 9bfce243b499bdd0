// Package embed is the flat, handle-based API for hosts that embed the
// verifier and cannot hold Go values: every argument and result is an
// integer, a byte slice or a bool.
//
// Each Initialize creates an independent client. Handles stay valid until
// Shutdown and may be used from multiple goroutines.
package embed

import (
	"context"
	"fmt"
	"sync"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/internal/registry"
	"github.com/ShayCichocki/provekit/pkg/models"
)

// Handle identifies a session created by Initialize. The zero Handle is
// never issued.
type Handle uint64

// StatusUnknown is returned for any request that cannot reach a prover.
const StatusUnknown = models.CodeUnknown

var sessions = &table{clients: make(map[Handle]*client.Client)}

type table struct {
	mu      sync.RWMutex
	next    Handle
	clients map[Handle]*client.Client
}

func (t *table) add(c *client.Client) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.clients[t.next] = c
	return t.next
}

func (t *table) get(h Handle) (*client.Client, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.clients[h]
	return c, ok
}

func (t *table) remove(h Handle) (*client.Client, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clients[h]
	delete(t.clients, h)
	return c, ok
}

// Initialize creates a session talking to endpoint. An empty endpoint
// gives a local-only session. Local fallback is enabled.
func Initialize(endpoint string, opts ...client.Option) (Handle, error) {
	cfg := client.DefaultConfig()
	cfg.Endpoint = endpoint
	c, err := client.New(cfg, opts...)
	if err != nil {
		return 0, err
	}
	return sessions.add(c), nil
}

// Shutdown releases the session. Unknown handles are ignored.
func Shutdown(h Handle) error {
	c, ok := sessions.remove(h)
	if !ok {
		return nil
	}
	return c.Close()
}

// Verify checks the first length bytes of content with the prover whose
// ordinal is proverID and returns the status ordinal (0 verified, 1 failed,
// 2 timeout, 3 error, 4 unknown).
//
// Invalid handles, out-of-range prover ids and lengths outside
// [0, len(content)] yield 4. Transport and scratch failures yield 3.
func Verify(h Handle, proverID int, content []byte, length int) int {
	return VerifyContext(context.Background(), h, proverID, content, length)
}

// VerifyContext is Verify with a caller-supplied context.
func VerifyContext(ctx context.Context, h Handle, proverID int, content []byte, length int) int {
	c, ok := sessions.get(h)
	if !ok {
		return StatusUnknown
	}
	kind, err := models.ProverKindFromID(proverID)
	if err != nil {
		return StatusUnknown
	}
	if length < 0 || length > len(content) {
		return StatusUnknown
	}

	result, err := c.VerifyProof(ctx, kind, content[:length], "")
	if err != nil {
		return models.CodeError
	}
	return result.Status.Code()
}

// HealthCheck reports whether the session can verify proofs.
func HealthCheck(h Handle) bool {
	c, ok := sessions.get(h)
	if !ok {
		return false
	}
	return c.HealthCheck(context.Background())
}

// SetSubprocessFallback toggles local prover execution for the session.
func SetSubprocessFallback(h Handle, enabled bool) error {
	c, ok := sessions.get(h)
	if !ok {
		return fmt.Errorf("%w: unknown handle %d", models.ErrInitFailed, h)
	}
	c.SetSubprocessFallback(enabled)
	return nil
}

// Tier returns the support tier (1..3) of proverID, or 0 when out of range.
func Tier(proverID int) int {
	kind, err := models.ProverKindFromID(proverID)
	if err != nil {
		return 0
	}
	return int(registry.Tier(kind))
}

// Count returns the number of supported provers.
func Count() int {
	return registry.Count()
}
