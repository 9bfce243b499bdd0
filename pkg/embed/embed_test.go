package embed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/provekit/internal/client"
	"github.com/ShayCichocki/provekit/internal/exec"
)

type codeRunner struct{ code int }

func (r codeRunner) Run(context.Context, exec.Invocation) (*exec.Result, error) {
	return &exec.Result{ExitCode: r.code}, nil
}

func initLocal(t *testing.T, code int) Handle {
	t.Helper()
	h, err := Initialize("", client.WithRunner(codeRunner{code: code}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(h) })
	return h
}

func TestCount(t *testing.T) {
	assert.Equal(t, 12, Count())
}

func TestTier(t *testing.T) {
	tests := []struct {
		id   int
		want int
	}{
		{0, 1}, {5, 1}, {6, 2}, {8, 2}, {9, 3}, {11, 3},
		{-1, 0}, {12, 0}, {1 << 20, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.id), "id %d", tt.id)
	}
}

func TestInitialize_InvalidEndpoint(t *testing.T) {
	h, err := Initialize("::not-a-url")
	assert.Error(t, err)
	assert.Zero(t, h)
}

func TestVerify(t *testing.T) {
	ok := initLocal(t, 0)
	bad := initLocal(t, 1)
	content := []byte("(assert false)(check-sat)")

	assert.Equal(t, 0, Verify(ok, 4, content, len(content)))
	assert.Equal(t, 1, Verify(bad, 4, content, len(content)))
	assert.Equal(t, 0, Verify(ok, 4, content, 0), "empty prefix is still a request")
}

func TestVerify_GuardedInputs(t *testing.T) {
	h := initLocal(t, 0)
	content := []byte("x")

	tests := []struct {
		name   string
		handle Handle
		id     int
		length int
	}{
		{"zero handle", 0, 0, 1},
		{"unknown handle", h + 1000, 0, 1},
		{"negative prover", h, -1, 1},
		{"prover past end", h, 12, 1},
		{"negative length", h, 0, -1},
		{"length past content", h, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, StatusUnknown, Verify(tt.handle, tt.id, content, tt.length))
		})
	}
}

func TestVerifyContext(t *testing.T) {
	h, err := Initialize("", client.WithRunner(exec.NewRunner()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(h) })
	content := []byte("(check-sat)")

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 3, VerifyContext(cancelled, h, 4, content, len(content)), "cancelled before the prover starts")

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	assert.Equal(t, 2, VerifyContext(expired, h, 4, content, len(content)), "deadline already passed")

	assert.Equal(t, StatusUnknown, VerifyContext(cancelled, h, 99, content, len(content)))
	assert.Equal(t, StatusUnknown, VerifyContext(context.Background(), 0, 4, content, len(content)))
}

func TestShutdown(t *testing.T) {
	h, err := Initialize("", client.WithRunner(codeRunner{}))
	require.NoError(t, err)

	assert.True(t, HealthCheck(h))
	require.NoError(t, Shutdown(h))
	assert.False(t, HealthCheck(h))
	assert.Equal(t, StatusUnknown, Verify(h, 0, []byte("x"), 1))
	assert.NoError(t, Shutdown(h), "double shutdown is a no-op")
}

func TestSetSubprocessFallback(t *testing.T) {
	h := initLocal(t, 0)

	require.NoError(t, SetSubprocessFallback(h, false))
	assert.False(t, HealthCheck(h))
	assert.Equal(t, 3, Verify(h, 0, []byte("x"), 1), "no transport left")

	require.NoError(t, SetSubprocessFallback(h, true))
	assert.True(t, HealthCheck(h))

	assert.Error(t, SetSubprocessFallback(0, true))
}

func TestHandlesAreIndependent(t *testing.T) {
	a := initLocal(t, 0)
	b := initLocal(t, 1)
	require.NotEqual(t, a, b)

	require.NoError(t, Shutdown(a))
	assert.Equal(t, 1, Verify(b, 2, []byte("x"), 1))
}

func TestConcurrentSessions(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := Initialize("", client.WithRunner(codeRunner{code: i % 2}))
			if !assert.NoError(t, err) {
				return
			}
			defer Shutdown(h)
			assert.Equal(t, i%2, Verify(h, i%Count(), []byte("proof"), 5))
		}(i)
	}
	wg.Wait()
}
