package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShayCichocki/provekit/pkg/models"
)

func newRemote(t *testing.T, handler http.HandlerFunc) *Remote {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewRemote(RemoteConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestParseEndpoint(t *testing.T) {
	good := []string{"http://localhost:8080", "https://prover.example.com/api/"}
	for _, e := range good {
		_, err := ParseEndpoint(e)
		assert.NoError(t, err, e)
	}

	bad := []string{"", "   ", "localhost:8080", "ftp://host", "http://", "::nope"}
	for _, e := range bad {
		_, err := ParseEndpoint(e)
		assert.ErrorIs(t, err, models.ErrInitFailed, e)
	}
}

func TestRemote_Verify(t *testing.T) {
	var got remoteRequest
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/v1/verify", req.URL.Path)
		body, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"VERIFIED","message":"ok","output":"unsat","duration_ms":42}`))
	})

	res, err := r.Verify(context.Background(), Request{Prover: models.ProverZ3, Content: []byte("(check-sat)")})
	require.NoError(t, err)

	assert.Equal(t, "z3", got.Prover)
	assert.Equal(t, "(check-sat)", got.Content)
	assert.Equal(t, models.StatusVerified, res.Status)
	assert.Equal(t, "ok", res.Message)
	assert.Equal(t, "unsat", res.ProverOutput)
	assert.Equal(t, int64(42), res.DurationMs)
	assert.Equal(t, models.ProverZ3, res.Prover)
}

func TestRemote_StatusTokens(t *testing.T) {
	tests := []struct {
		token string
		want  models.ProofStatus
	}{
		{"VERIFIED", models.StatusVerified},
		{"FAILED", models.StatusFailed},
		{"TIMEOUT", models.StatusTimeout},
		{"ERROR", models.StatusError},
		{"verified", models.StatusUnknown},
		{"", models.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			r := newRemote(t, func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]any{"status": tt.token})
			})
			res, err := r.Verify(context.Background(), Request{Prover: models.ProverCoq, Content: []byte("x")})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Status)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestRemote_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: models.ErrRequestFailed,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			want: models.ErrParseFailed,
		},
		{
			name: "missing status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"message":"hi"}`))
			},
			want: models.ErrInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRemote(t, tt.handler)
			_, err := r.Verify(context.Background(), Request{Prover: models.ProverLean, Content: []byte("x")})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRemote_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	r, err := NewRemote(RemoteConfig{Endpoint: endpoint, Timeout: time.Second})
	require.NoError(t, err)

	_, err = r.Verify(context.Background(), Request{Prover: models.ProverZ3, Content: []byte("x")})
	assert.ErrorIs(t, err, models.ErrConnectionFailed)
	assert.False(t, r.Healthy(context.Background()))
}

func TestRemote_InvalidProver(t *testing.T) {
	r := newRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("request should not be sent")
	})
	_, err := r.Verify(context.Background(), Request{Prover: models.ProverKind(99)})
	assert.ErrorIs(t, err, models.ErrProverNotFound)
}

func TestRemote_ReadsFilenameWhenContentEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.thy")
	require.NoError(t, os.WriteFile(path, []byte("theory A imports Main begin end"), 0644))

	var got remoteRequest
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"status":"FAILED"}`))
	})

	res, err := r.Verify(context.Background(), Request{Prover: models.ProverIsabelle, Filename: path})
	require.NoError(t, err)
	assert.Equal(t, "theory A imports Main begin end", got.Content)
	assert.Equal(t, models.StatusFailed, res.Status)
}

func TestRemote_Healthy(t *testing.T) {
	var unhealthy atomic.Bool
	r := newRemote(t, func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/base/health", req.URL.Path)
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})
	// Rebuild with a base path to check URL joining.
	base, err := NewRemote(RemoteConfig{Endpoint: r.Endpoint() + "/base/"})
	require.NoError(t, err)

	assert.True(t, base.Healthy(context.Background()))
	unhealthy.Store(true)
	assert.False(t, base.Healthy(context.Background()))
}

func TestRemote_RateLimiterHonoursContext(t *testing.T) {
	r := newRemote(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"VERIFIED"}`))
	})
	limited, err := NewRemote(RemoteConfig{Endpoint: r.Endpoint(), RateLimit: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = limited.Verify(context.Background(), Request{Prover: models.ProverZ3, Content: []byte("x")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = limited.Verify(ctx, Request{Prover: models.ProverZ3, Content: []byte("x")})
	assert.ErrorIs(t, err, models.ErrRequestFailed)
}
