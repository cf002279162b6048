// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP transport for the Aetheris RAG service.
//
// This package implements the shared client every service package (auth,
// chat) goes through. It attaches the bearer token to outgoing requests,
// enforces a fixed request timeout, and intercepts response codes the way
// the service contract requires: a 401 on any call clears the token and
// fires the forced-logout hook, except when the failing call is the
// current-user check, which fails silently so token validation can handle
// it as a normal state transition.
//
// # Key Types
//
//   - Client: pooled HTTP client with bearer injection and interception
//   - APIError: typed error carrying status and server-supplied detail
//
// # Error Taxonomy
//
//   - ErrAuthFailed: 401/403 (bad credentials, expired token)
//   - ErrConflict: 409 (e.g. duplicate registration)
//   - ErrNetwork: no response from the service
//
// All are matchable with errors.Is; the concrete *APIError is available
// via errors.As for the server-supplied message.
//
// # Usage
//
//	client := api.NewClient(api.Config{BaseURL: "https://rag.example.com/api"})
//	client.SetTokenSource(func() string { return mgr.Token() })
//	var user UserInfo
//	err := client.Get(ctx, "/auth/me", &user)
package api
