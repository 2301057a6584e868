// Package checkers holds health.Check implementations for upstream dependencies.
package checkers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPChecker probes an HTTP endpoint. Any response below 500 counts as
// reachable: provider APIs answer 401/404 to unauthenticated probes.
type HTTPChecker struct {
	url    string
	name   string
	method string
	client *http.Client
}

// Option configures an HTTPChecker.
type Option func(*HTTPChecker)

// WithClient swaps the HTTP client, e.g. for tests.
func WithClient(c *http.Client) Option {
	return func(h *HTTPChecker) { h.client = c }
}

// WithMethod sets the probe method. Default is GET.
func WithMethod(method string) Option {
	return func(h *HTTPChecker) { h.method = method }
}

// NewHTTPChecker creates a checker named name for url. The URL doubles as the
// name when name is empty.
func NewHTTPChecker(url, name string, opts ...Option) *HTTPChecker {
	if name == "" {
		name = url
	}
	h := &HTTPChecker{
		url:    url,
		name:   name,
		method: http.MethodGet,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTPChecker) Name() string {
	return h.name
}

// Check fails on transport errors and 5xx responses.
func (h *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("unhealthy status code: %d", resp.StatusCode)
	}
	return nil
}
