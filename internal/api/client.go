// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP transport for the Aetheris RAG service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Configuration constants for the Aetheris service transport.
const (
	// DefaultBaseURL is the default service base URL.
	DefaultBaseURL = "http://127.0.0.1:8080/api"

	// DefaultTimeout is the fixed request timeout. Timeout policy lives
	// here, not in the callers: a timed-out call surfaces as ErrNetwork.
	DefaultTimeout = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024

	// currentUserPath is the token-validation endpoint. A 401/403 on this
	// path must fail silently (no forced logout) so the session manager
	// can absorb it as a normal state transition.
	currentUserPath = "/auth/me"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// Shared transport for all Aetheris service requests.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the service client.
type Config struct {
	// BaseURL is the service base URL including the /api prefix.
	BaseURL string

	// Timeout for requests (default: 10s).
	Timeout time.Duration
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Aetheris RAG service.
//
// The Client is safe for concurrent use. The token source and the
// unauthorized hook are injected after construction because the session
// manager that provides them is itself built on top of this client.
type Client struct {
	config     Config
	httpClient *http.Client

	mu             sync.RWMutex
	tokenSource    func() string
	onUnauthorized func()
}

// NewClient creates a service client. Zero config fields fall back to
// defaults.
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   config.Timeout,
		},
	}
}

// SetTokenSource injects the bearer-token provider. When the source
// returns a non-empty token it is attached to every outgoing request.
func (c *Client) SetTokenSource(source func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = source
}

// SetUnauthorizedHook injects the forced-logout hook fired on a 401 from
// any endpoint except the current-user check.
func (c *Client) SetUnauthorizedHook(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = hook
}

// BaseURL returns the configured service base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body and decodes the JSON
// response into out. Either in or out may be nil.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, in, out)
}

// do performs the request, attaching the bearer token and running the
// response interception described in the package doc.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		// No response at all: timeouts and connection failures all
		// surface as the generic network failure.
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, MaxResponseSize)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.intercept(path, resp.StatusCode, limited)
	}

	if out == nil {
		io.Copy(io.Discard, limited)
		return nil
	}
	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// intercept converts a non-2xx response into an *APIError and applies the
// global 401 side effect.
func (c *Client) intercept(path string, status int, body io.Reader) error {
	apiErr := &APIError{
		Status:  status,
		Message: decodeServerMessage(body),
		Path:    path,
	}

	// A 401 anywhere but the current-user check forces a logout. The
	// current-user check fails silently so Validate() handles it.
	if status == http.StatusUnauthorized && path != currentUserPath {
		if hook := c.unauthorizedHook(); hook != nil {
			hook()
		}
	}

	return apiErr
}

// decodeServerMessage pulls the human-readable detail out of an error
// response body. The service uses {"message": ...} with {"detail": ...}
// as a secondary field.
func decodeServerMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Detail
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

func (c *Client) unauthorizedHook() func() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onUnauthorized
}
