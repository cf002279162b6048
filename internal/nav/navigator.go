// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav gates view changes on the authentication session.
package nav

import (
	"context"
	"errors"
	"sync"
)

// maxRedirects bounds redirect chains. Two hops covers every rule in the
// guard; anything longer is a route-table bug.
const maxRedirects = 5

// ErrTooManyRedirects indicates a redirect cycle in the route table.
var ErrTooManyRedirects = errors.New("navigation redirect loop")

// AfterNavigateFunc runs after every completed navigation. Used for the
// window title and scroll reset; it has no influence on the decision.
type AfterNavigateFunc func(Route, string)

// =============================================================================
// NAVIGATOR
// =============================================================================

// Navigator owns the navigation history and runs every attempt through
// the guard. Blocked attempts never corrupt the history: a denied
// navigation leaves no entry, and its replay replaces the current entry
// rather than pushing a new one.
type Navigator struct {
	guard *Guard
	table *Table

	mu      sync.Mutex
	history []string
	current Route
	after   []AfterNavigateFunc
}

// NewNavigator creates a navigator over the route table and session.
func NewNavigator(table *Table, session SessionState) *Navigator {
	return &Navigator{
		guard: NewGuard(table, session),
		table: table,
	}
}

// PathByName resolves a route name through the navigator's table.
func (n *Navigator) PathByName(name string) string {
	return n.table.PathByName(name)
}

// OnAfterNavigate registers a hook run after each completed navigation.
func (n *Navigator) OnAfterNavigate(fn AfterNavigateFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.after = append(n.after, fn)
}

// Current returns the active route.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// CurrentPath returns the active path, "" before the first navigation.
func (n *Navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) == 0 {
		return ""
	}
	return n.history[len(n.history)-1]
}

// History returns a copy of the navigation history.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.history))
	copy(out, n.history)
	return out
}

// Navigate attempts to move to path, pushing a history entry when it
// completes. May block while a token validation is in flight; the wait
// is bounded by ctx.
func (n *Navigator) Navigate(ctx context.Context, path string) (Route, error) {
	return n.navigate(ctx, path, false)
}

// Replace is Navigate with history-replacing semantics.
func (n *Navigator) Replace(ctx context.Context, path string) (Route, error) {
	return n.navigate(ctx, path, true)
}

// Back pops the history and returns the newly current route. With one or
// zero entries it stays put.
func (n *Navigator) Back() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.history) > 1 {
		n.history = n.history[:len(n.history)-1]
		n.current = n.table.Match(n.history[len(n.history)-1])
	}
	return n.current
}

func (n *Navigator) navigate(ctx context.Context, path string, replace bool) (Route, error) {
	for hops := 0; ; hops++ {
		if hops > maxRedirects {
			return Route{}, ErrTooManyRedirects
		}

		dec, err := n.guard.Resolve(ctx, path)
		if err != nil {
			// Denied outright (context ended while waiting): the
			// attempt leaves no history entry.
			return Route{}, err
		}
		// A replayed attempt was denied once already; its re-issue must
		// not grow the history.
		if dec.Replayed {
			replace = true
		}
		if dec.Action == ActionRedirect {
			path = dec.Target
			continue
		}

		n.commit(dec.Route, path, replace)
		return dec.Route, nil
	}
}

// commit records the completed navigation and runs the after hooks.
func (n *Navigator) commit(route Route, path string, replace bool) {
	n.mu.Lock()
	if replace && len(n.history) > 0 {
		n.history[len(n.history)-1] = path
	} else {
		n.history = append(n.history, path)
	}
	n.current = route
	hooks := make([]AfterNavigateFunc, len(n.after))
	copy(hooks, n.after)
	n.mu.Unlock()

	for _, hook := range hooks {
		hook(route, path)
	}
}
