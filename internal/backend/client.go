// Package backend is the HTTP client for the external RL compute service
// that executes training and evaluation jobs. The API only ever issues the
// start and evaluate calls; progress flows back through the database.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dkhydro/hydrosim/internal/config"
)

// ErrUnreachable wraps transport-level failures (connection refused, DNS,
// timeout). Callers distinguish it from StatusError to pick the response.
var ErrUnreachable = errors.New("backend service unreachable")

// StatusError is a non-2xx reply from the compute service. The status code
// is proxied back to the API caller.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend service error (%d): %s", e.StatusCode, e.Body)
}

// Client talks to the compute service over HTTP.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
}

func NewClient(cfg config.BackendConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.ServiceURL, "/"),
	}
}

// StartRun asks the backend to begin training for a persisted run. Any 2xx
// reply means the job was accepted.
func (c *Client) StartRun(ctx context.Context, projectUID string, runID int64) error {
	return c.get(ctx, fmt.Sprintf("/start/%s/%d", projectUID, runID))
}

// Evaluate asks the backend to run an evaluation job for a persisted run.
func (c *Client) Evaluate(ctx context.Context, runUID string) error {
	return c.get(ctx, fmt.Sprintf("/evaluate/%s", runUID))
}

func (c *Client) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return nil
}

// Ping probes the service root. Any HTTP reply counts as reachable; the
// health endpoint only cares whether the service answers at all.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	_ = resp.Body.Close()

	return nil
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
