package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/provekit/internal/exec"
	"github.com/ShayCichocki/provekit/internal/verify"
	"github.com/ShayCichocki/provekit/pkg/models"
)

type exitRunner struct{ code int }

func (r exitRunner) Run(context.Context, exec.Invocation) (*exec.Result, error) {
	return &exec.Result{ExitCode: r.code}, nil
}

func TestLocal(t *testing.T) {
	l := NewLocal(verify.New(exitRunner{code: 0}, verify.WithScratchDir(t.TempDir())))

	assert.Equal(t, "local", l.Name())
	assert.True(t, l.Healthy(context.Background()))

	res, err := l.Verify(context.Background(), Request{Prover: models.ProverMetamath, Content: []byte("$( $)")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, res.Status)
	assert.NoError(t, l.Close())
}
