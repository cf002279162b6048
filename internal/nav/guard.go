// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav gates view changes on the authentication session.
package nav

import "context"

// SessionState is the slice of the session manager the guard reads.
// The guard never mutates the session.
type SessionState interface {
	IsLoggedIn() bool
	ValidationDone() (<-chan struct{}, bool)
}

// Action is the guard's verdict on a navigation attempt.
type Action int

const (
	// ActionAllow lets the navigation proceed to its target.
	ActionAllow Action = iota
	// ActionRedirect sends the navigation elsewhere.
	ActionRedirect
)

// Decision is the resolved outcome for one navigation attempt.
type Decision struct {
	// Action is allow or redirect.
	Action Action

	// Route is the matched route when allowed.
	Route Route

	// Target is the redirect destination, including any query.
	Target string

	// Replayed reports that the attempt arrived during an in-flight
	// validation and was resolved only after its completion. A replayed
	// navigation replaces the current history entry instead of pushing.
	Replayed bool
}

// =============================================================================
// GUARD
// =============================================================================

// Guard decides allow/redirect for each navigation attempt.
type Guard struct {
	table   *Table
	session SessionState
}

// NewGuard creates a guard over the route table and session state.
func NewGuard(table *Table, session SessionState) *Guard {
	return &Guard{table: table, session: session}
}

// Resolve applies the decision procedure to one navigation attempt.
//
// While a token validation is in flight the attempt waits on the shared
// completion channel; every attempt blocked during the same flight sees
// the same completion and is then evaluated against the final session
// state. The wait is bounded by ctx.
func (g *Guard) Resolve(ctx context.Context, path string) (Decision, error) {
	replayed := false
	if done, validating := g.session.ValidationDone(); validating {
		replayed = true
		select {
		case <-done:
		case <-ctx.Done():
			return Decision{}, ctx.Err()
		}
	}

	route := g.table.Match(path)
	loggedIn := g.session.IsLoggedIn()

	switch {
	case route.RequiresAuth() && !loggedIn:
		// Preserve the attempted path for the post-login return.
		return Decision{
			Action:   ActionRedirect,
			Target:   loginRedirect(g.table.PathByName(RouteLogin), path),
			Replayed: replayed,
		}, nil

	case !route.RequiresAuth() && loggedIn &&
		(route.Name == RouteLogin || route.Name == RouteRegister):
		// An authenticated user has no business on the auth screens.
		return Decision{
			Action:   ActionRedirect,
			Target:   g.table.PathByName(RouteHome),
			Replayed: replayed,
		}, nil

	default:
		return Decision{Action: ActionAllow, Route: route, Replayed: replayed}, nil
	}
}
