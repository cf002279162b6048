// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP transport for the Aetheris RAG service.
package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for easy checking with errors.Is.
var (
	// ErrAuthFailed indicates bad credentials or an expired/invalid token.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrConflict indicates a conflicting request, e.g. a duplicate
	// registration email.
	ErrConflict = errors.New("conflict")

	// ErrNetwork indicates the service did not respond.
	ErrNetwork = errors.New("network error")
)

// APIError represents a non-2xx response from the Aetheris service.
type APIError struct {
	// Status is the HTTP status code.
	Status int

	// Message is the server-supplied detail, if any.
	Message string

	// Path is the request path that failed.
	Path string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("aetheris service error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("aetheris service error (HTTP %d) on %s", e.Status, e.Path)
}

// Is maps status codes onto the package sentinels so callers can use
// errors.Is without inspecting codes themselves.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

// ServerMessage extracts the server-supplied detail from err, or returns
// the empty string when err carries none. Used when surfacing failures to
// the user with the server's wording preferred over a generic fallback.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
