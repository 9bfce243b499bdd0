package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ShayCichocki/provekit/internal/logging"
	"github.com/ShayCichocki/provekit/internal/verdict"
	"github.com/ShayCichocki/provekit/pkg/models"
)

const (
	verifyPath = "/v1/verify"
	healthPath = "/health"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 8 << 20
	// healthTimeout bounds a single health probe.
	healthTimeout = 5 * time.Second
)

// RemoteConfig configures a Remote transport.
type RemoteConfig struct {
	// Endpoint is the base URL of the verification service, e.g. "http://prover:8080".
	Endpoint string
	// Timeout bounds a whole verify request. Zero means no client-side limit.
	Timeout time.Duration
	// RateLimit is the steady request rate per second. Zero disables limiting.
	RateLimit float64
	// Burst is the limiter bucket size; at least 1 when limiting is enabled.
	Burst int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Remote verifies proofs through the HTTP/JSON verification service.
type Remote struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

type remoteRequest struct {
	Prover  string `json:"prover"`
	Content string `json:"content"`
}

type remoteResponse struct {
	Status     *string `json:"status"`
	Message    string  `json:"message"`
	Output     string  `json:"output"`
	DurationMs int64   `json:"duration_ms"`
}

// NewRemote validates the endpoint and builds a Remote transport.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	base, err := ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Remote{
		base:    base,
		client:  client,
		limiter: limiter,
		logger:  logging.OrNop(cfg.Logger).Named("remote"),
	}, nil
}

// ParseEndpoint checks that endpoint is an absolute http(s) URL.
func ParseEndpoint(endpoint string) (*url.URL, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("%w: empty endpoint", models.ErrInitFailed)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: parse endpoint %q: %v", models.ErrInitFailed, endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: endpoint %q must use http or https", models.ErrInitFailed, endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q has no host", models.ErrInitFailed, endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

func (r *Remote) Name() string { return "remote" }

// Endpoint returns the normalized base URL.
func (r *Remote) Endpoint() string { return r.base.String() }

// Verify sends the proof content to the service and decodes its verdict.
func (r *Remote) Verify(ctx context.Context, req Request) (*models.ProofResult, error) {
	if !req.Prover.Valid() {
		return nil, fmt.Errorf("%w: %s", models.ErrProverNotFound, req.Prover)
	}

	content := req.Content
	if len(content) == 0 && req.Filename != "" {
		data, err := os.ReadFile(req.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", models.ErrRequestFailed, req.Filename, err)
		}
		content = data
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", models.ErrRequestFailed, err)
	}

	body, err := json.Marshal(remoteRequest{Prover: req.Prover.String(), Content: string(content)})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", models.ErrRequestFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url(verifyPath), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", models.ErrRequestFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", models.ErrConnectionFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d: %s",
			models.ErrRequestFailed, verifyPath, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded remoteResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", models.ErrParseFailed, err)
	}
	if decoded.Status == nil {
		return nil, fmt.Errorf("%w: response has no status", models.ErrInvalidResponse)
	}

	result := &models.ProofResult{
		Prover:       req.Prover,
		Status:       verdict.FromString(*decoded.Status),
		Message:      decoded.Message,
		ProverOutput: decoded.Output,
		DurationMs:   decoded.DurationMs,
	}
	if result.Message == "" {
		result.Message = verdict.Message(result.Status)
	}
	if result.DurationMs <= 0 {
		result.DurationMs = time.Since(start).Milliseconds()
	}

	r.logger.Debug("remote verification finished",
		zap.Stringer("prover", req.Prover),
		zap.Stringer("status", result.Status),
		zap.Int64("duration_ms", result.DurationMs))
	return result, nil
}

// Healthy probes GET /health; any 2xx answer means healthy.
func (r *Remote) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(healthPath), nil)
	if err != nil {
		return false
	}
	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

// Close releases idle connections.
func (r *Remote) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Remote) url(path string) string {
	u := *r.base
	u.Path = r.base.Path + path
	return u.String()
}

var _ Transport = (*Remote)(nil)
