// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client's authentication state.
//
// The Manager is the only component that reads or writes the durable
// token and profile storage; everything else observes the session through
// its accessors or mutates it through its operations.
//
// # State Machine
//
//	Unauthenticated --Initialize/Validate--> Validating
//	Validating --current-user ok--> Authenticated
//	Validating --any failure-----> Unauthenticated
//	Unauthenticated --Login ok---> Authenticated (no Validating hop:
//	                               the login response carries the profile)
//
// # Single-Flight Validation
//
// At most one validation is in flight per Manager. A Validate call that
// finds one already running returns immediately without starting a second
// network call; interested parties (the navigation guard) wait on the
// shared completion channel from ValidationDone, which is closed exactly
// once when the in-flight validation resolves, after the terminal state
// is visible.
//
// # Usage
//
//	mgr := session.NewManager(identity, backend)
//	mgr.Initialize(ctx) // restores a stored token and validates it
//	if mgr.IsLoggedIn() {
//	    // ...
//	}
package session
