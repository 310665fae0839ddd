// Package gateway is the client-side request pipeline of the admin panel. It
// authenticates outbound requests and recovers from expired access tokens by
// refreshing once and replaying the requests that were rejected meanwhile.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TokenSource is the part of the token authority the gateway depends on.
type TokenSource interface {
	Token(ctx context.Context) string
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context)
}

// SessionEndFunc runs after a failed refresh has cleared the session.
type SessionEndFunc func(ctx context.Context, cause error)

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger used for request and refresh logs.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(metrics *Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithSessionEnd registers the hook invoked when the session cannot be
// refreshed, typically a redirect to the login boundary.
func WithSessionEnd(fn SessionEndFunc) Option {
	return func(g *Gateway) {
		g.onSessionEnd = fn
	}
}

type refreshResult struct {
	token string
	err   error
}

// Gateway is an http.RoundTripper that attaches bearer tokens and handles
// 401 responses with a single-flight refresh.
type Gateway struct {
	next         http.RoundTripper
	tokens       TokenSource
	logger       *slog.Logger
	metrics      *Metrics
	onSessionEnd SessionEndFunc

	mu         sync.Mutex
	refreshing bool
	queue      []chan refreshResult
}

// New wraps next. A nil next uses http.DefaultTransport.
func New(next http.RoundTripper, tokens TokenSource, opts ...Option) *Gateway {
	if next == nil {
		next = http.DefaultTransport
	}
	g := &Gateway{next: next, tokens: tokens}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// RoundTrip implements http.RoundTripper. A 401 triggers one refresh and one
// replay; a replayed request that is rejected again is returned as-is.
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	req, err := replayable(req)
	if err != nil {
		return nil, err
	}

	res, err := g.send(req, g.tokens.Token(ctx))
	if err != nil || res.StatusCode != http.StatusUnauthorized {
		return res, err
	}

	discard(res)
	token, err := g.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	g.metrics.observeRetry()
	g.logger.DebugContext(ctx, "replaying request after refresh", "method", req.Method, "path", req.URL.Path)
	return g.send(req, token)
}

// Refresh obtains a new access token. Concurrent callers share one refresh:
// the first performs it and the rest wait in arrival order for its outcome.
// On failure the session is cleared and the session end hook runs once.
func (g *Gateway) Refresh(ctx context.Context) (string, error) {
	g.mu.Lock()
	if g.refreshing {
		wait := make(chan refreshResult, 1)
		g.queue = append(g.queue, wait)
		g.mu.Unlock()
		g.metrics.observeQueued()

		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	g.refreshing = true
	g.mu.Unlock()

	// The refresh outlives a canceled leader so queued callers still get an outcome.
	token, err := g.tokens.Refresh(context.WithoutCancel(ctx))
	g.metrics.observeRefresh(err)

	g.mu.Lock()
	for _, wait := range g.queue {
		wait <- refreshResult{token: token, err: err}
	}
	released := len(g.queue)
	g.queue = nil
	g.refreshing = false
	g.mu.Unlock()

	if err != nil {
		g.logger.ErrorContext(ctx, "token refresh failed, ending session", "error", err, "released", released)
		// A canceled leader must not leave the dead session behind.
		endCtx := context.WithoutCancel(ctx)
		g.tokens.Logout(endCtx)
		if g.onSessionEnd != nil {
			g.onSessionEnd(endCtx, err)
		}
		return "", err
	}

	g.logger.InfoContext(ctx, "token refreshed", "released", released)
	return token, nil
}

func (g *Gateway) send(req *http.Request, token string) (*http.Response, error) {
	ctx := req.Context()
	outbound := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		outbound.Body = body
	}
	if token != "" {
		outbound.Header.Set("Authorization", "Bearer "+token)
	} else {
		outbound.Header.Del("Authorization")
	}

	g.logger.DebugContext(ctx, "api request", "method", req.Method, "path", req.URL.Path)
	start := time.Now()
	res, err := g.next.RoundTrip(outbound)
	if err != nil {
		g.logger.ErrorContext(ctx, "api request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, err
	}
	g.metrics.observeRequest(req.Method, res.StatusCode, time.Since(start))

	logger := g.logger.With("status", res.StatusCode, "path", req.URL.Path)
	if res.StatusCode >= http.StatusBadRequest {
		logger.WarnContext(ctx, "api response error")
	} else {
		logger.DebugContext(ctx, "api response")
	}
	return res, nil
}

// replayable returns a request whose body can be sent twice. The caller's
// request is never modified; a body without GetBody is drained into a clone.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}
	payload, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(payload)), nil
	}
	clone.Body, _ = clone.GetBody()
	return clone, nil
}

func discard(res *http.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
