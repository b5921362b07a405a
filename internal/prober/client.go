package prober

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/config"
	"github.com/therealutkarshpriyadarshi/hlsprobe/internal/logging"
	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// ErrNotConfigured is returned when no inspection service endpoint is set
var ErrNotConfigured = errors.New("media inspection service endpoint is not configured")

// Client talks to the external media-inspection service. The service does
// the actual decoding; this client only handles transport and tolerates
// malformed responses.
type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
	logger   *logging.Logger
}

// ProbeRequest is the inspection request for one media resource
type ProbeRequest struct {
	URL      string `json:"url"`
	InitURL  string `json:"initUrl,omitempty"`
	Detailed bool   `json:"detailed"`
}

// ProbeResponse is the inspection service reply. Stderr carries the tool's
// raw diagnostic text, which the corruption heuristics consume.
type ProbeResponse struct {
	Success bool                `json:"success"`
	Data    *models.ProbeResult `json:"data,omitempty"`
	Stderr  string              `json:"stderr,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NewClient creates an inspection service client
func NewClient(cfg config.ProberConfig, logger *logging.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// Timeout returns the per-call probe timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Probe requests inspection of the resource at req.URL. A per-call timeout
// bounds the request; transport failures and non-200 replies surface as
// errors, while tool-level failures come back as Success=false.
func (c *Client) Probe(ctx context.Context, req ProbeRequest) (*ProbeResponse, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	resp, err := c.post(ctx, req)
	if c.logger != nil {
		c.logger.LogProbeOperation(req.URL, req.Detailed, time.Since(start), err)
	}
	return resp, err
}

func (c *Client) post(ctx context.Context, req ProbeRequest) (*ProbeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode probe request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// ProbeFile uploads raw file bytes for a whole-file inspection, used by the
// corruption-check path when the media is not reachable by URL.
func (c *Client) ProbeFile(ctx context.Context, r io.Reader, filename string, detailed bool) (*ProbeResponse, error) {
	if c.endpoint == "" {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read file for upload: %w", err)
	}
	if err := writer.WriteField("detailed", strconv.FormatBool(detailed)); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build probe request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(httpReq)
}

func (c *Client) do(httpReq *http.Request) (*ProbeResponse, error) {
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("inspection service unreachable: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inspection response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inspection service returned status %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var probeResp ProbeResponse
	if err := json.Unmarshal(payload, &probeResp); err != nil {
		return nil, fmt.Errorf("malformed inspection response: %w", err)
	}
	return &probeResp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
