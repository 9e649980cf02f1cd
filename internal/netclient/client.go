// Package netclient is a small JSON-over-HTTP client shared by
// internal/overlay (peer-to-peer REST calls), internal/propagator
// (fan-out), and internal/miner (talking to the local node's own API).
// It generalizes a JSON-RPC-style client into plain
// REST verbs/paths, since this protocol has no envelope — just GET/POST
// with JSON bodies and 2xx/non-2xx status codes.
package netclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/floodnet/node/config"
)

// Client issues GET/POST requests with a bounded per-request timeout.
type Client struct {
	http *http.Client
}

// New creates a Client using config.RequestTimeout as the per-request
// deadline: every outbound request gets a bounded timeout.
func New() *Client {
	return NewWithTimeout(config.RequestTimeout)
}

// NewWithTimeout creates a Client with a custom timeout.
func NewWithTimeout(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.RequestTimeout
	}
	return &Client{http: &http.Client{Timeout: timeout}}
}

// Get issues a GET request against url and decodes the JSON response body
// into out (which may be nil to discard the body).
func (c *Client) Get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

// PostJSON marshals body, POSTs it to url, and decodes the JSON response
// into out (which may be nil to discard the body).
func (c *Client) PostJSON(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// StatusError is returned when the server responds with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
