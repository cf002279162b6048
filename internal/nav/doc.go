// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav gates view changes on the authentication session.
//
// Every navigation attempt flows through the Guard before it takes
// effect. The guard never mutates the session; it only reads it, possibly
// waiting for an in-flight token validation to resolve first, and decides
// allow or redirect.
//
// # Decision Procedure
//
//  1. Validation in flight: wait on the session's shared completion
//     channel. All navigations blocked during one flight collapse onto
//     the same completion and each replays exactly once, replacing the
//     current history entry instead of pushing a new one.
//  2. Route requires auth (the default) and nobody is logged in:
//     redirect to the login route carrying the attempted path, so the
//     user lands where they were going after signing in.
//  3. Logged-in user heading to login or register: redirect home.
//  4. Otherwise: allow.
//
// # Key Types
//
//   - Table, Route: the route table with per-route auth metadata
//   - Guard: the decision procedure above
//   - Navigator: history stack with push/replace semantics and
//     after-navigation hooks (title, scroll reset)
//
// # Usage
//
//	nav := nav.NewNavigator(nav.DefaultTable(), mgr)
//	route, err := nav.Navigate(ctx, "/resources")
package nav
