// Package client is the typed API layer the admin panel uses to talk to its
// backend. Requests travel through an http.Client whose transport is normally
// the refresh-aware gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/gym-admin/internal/application"
)

// DefaultBaseURL addresses the in-process backend.
const DefaultBaseURL = "http://gymadmin.local"

// Response pairs the HTTP status with the decoded envelope.
type Response[T any] struct {
	Status int
	Data   application.Envelope[T]
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBulkConcurrency bounds concurrent requests issued by bulk operations.
func WithBulkConcurrency(n int) Option {
	return func(c *Client) {
		c.bulkConcurrency = n
	}
}

// Client groups the resource APIs.
type Client struct {
	http            *http.Client
	baseURL         string
	logger          *slog.Logger
	bulkConcurrency int

	Members   *Members
	Plans     *Plans
	Dashboard *Dashboard
}

// New builds a client sending through transport. An empty baseURL uses
// DefaultBaseURL.
func New(baseURL string, transport http.RoundTripper, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		http:            &http.Client{Transport: transport},
		baseURL:         strings.TrimRight(baseURL, "/"),
		bulkConcurrency: 4,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.bulkConcurrency < 1 {
		c.bulkConcurrency = 1
	}
	c.Members = &Members{c: c}
	c.Plans = &Plans{c: c}
	c.Dashboard = &Dashboard{c: c}
	return c
}

type failureBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func call[T any](ctx context.Context, c *Client, method, path string, body any) (Response[T], error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Response[T]{}, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Response[T]{}, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Response[T]{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Response[T]{}, fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if res.StatusCode >= http.StatusBadRequest {
		apiErr := &Error{Status: res.StatusCode}
		var failure failureBody
		if json.Unmarshal(raw, &failure) == nil {
			apiErr.Message = failure.Message
			apiErr.Fields = failure.Errors
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.DebugContext(ctx, "api call failed", "method", method, "path", path, "status", res.StatusCode, "message", apiErr.Message)
		return Response[T]{Status: res.StatusCode}, apiErr
	}

	out := Response[T]{Status: res.StatusCode}
	if err := json.Unmarshal(raw, &out.Data); err != nil {
		return out, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return out, nil
}
