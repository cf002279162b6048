// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package nav gates view changes on the authentication session.
package nav

import (
	"net/url"
	"strings"
)

// Route names used by guard rules and view lookup.
const (
	RouteLogin          = "Login"
	RouteRegister       = "Register"
	RouteHome           = "Home"
	RouteChat           = "Chat"
	RouteResourceList   = "ResourceList"
	RouteResourceUpload = "ResourceUpload"
	RouteResourceDetail = "ResourceDetail"
	RouteNotFound       = "NotFound"
)

// appTitle is the suffix for every window title.
const appTitle = "Aetheris RAG"

// Route declares one navigable view. The guard reads this metadata only;
// view implementations live elsewhere.
type Route struct {
	// Pattern is the route path, possibly with :param segments.
	Pattern string

	// Name identifies the route to guard rules and views.
	Name string

	// Title is the human-readable page title, "" for the app default.
	Title string

	// Public marks routes reachable without authentication. The zero
	// value keeps the safe default: routes require auth unless they
	// explicitly opt out.
	Public bool
}

// RequiresAuth reports whether the route needs a logged-in session.
func (r Route) RequiresAuth() bool {
	return !r.Public
}

// WindowTitle returns the title to display after navigating here.
func (r Route) WindowTitle() string {
	if r.Title == "" {
		return appTitle
	}
	return r.Title + " - " + appTitle
}

// =============================================================================
// ROUTE TABLE
// =============================================================================

// Table is the application's route table.
type Table struct {
	routes   []Route
	notFound Route
}

// DefaultTable returns the aetheris route table.
func DefaultTable() *Table {
	return NewTable([]Route{
		{Pattern: "/login", Name: RouteLogin, Title: "Sign In", Public: true},
		{Pattern: "/register", Name: RouteRegister, Title: "Register", Public: true},
		{Pattern: "/", Name: RouteHome, Title: "Home"},
		{Pattern: "/chat", Name: RouteChat, Title: "Ask"},
		{Pattern: "/resources", Name: RouteResourceList, Title: "Resources"},
		{Pattern: "/resources/upload", Name: RouteResourceUpload, Title: "Upload"},
		{Pattern: "/resources/:id", Name: RouteResourceDetail, Title: "Resource"},
	}, Route{Name: RouteNotFound, Title: "Not Found", Public: true})
}

// NewTable builds a table from explicit routes plus a catch-all.
func NewTable(routes []Route, notFound Route) *Table {
	return &Table{routes: routes, notFound: notFound}
}

// Match resolves a path (query string ignored) to its route. Unknown
// paths resolve to the catch-all.
func (t *Table) Match(path string) Route {
	path = stripQuery(path)
	for _, r := range t.routes {
		if matchPattern(r.Pattern, path) {
			return r
		}
	}
	return t.notFound
}

// PathByName returns the pattern of a named route, or "" when absent.
// Only useful for routes without :param segments.
func (t *Table) PathByName(name string) string {
	for _, r := range t.routes {
		if r.Name == name {
			return r.Pattern
		}
	}
	return ""
}

// matchPattern matches a path against a pattern segment by segment;
// :param segments match any non-empty value.
func matchPattern(pattern, path string) bool {
	if pattern == path {
		return true
	}
	pSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(pSegs) != len(segs) {
		return false
	}
	for i, pSeg := range pSegs {
		if strings.HasPrefix(pSeg, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if pSeg != segs[i] {
			return false
		}
	}
	return true
}

// stripQuery drops the query string from a path.
func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// RedirectParam extracts the ?redirect= target from a path, or "".
func RedirectParam(path string) string {
	i := strings.IndexByte(path, '?')
	if i < 0 {
		return ""
	}
	values, err := url.ParseQuery(path[i+1:])
	if err != nil {
		return ""
	}
	return values.Get("redirect")
}

// loginRedirect builds the login path carrying the originally intended
// target for the post-login return.
func loginRedirect(loginPath, intended string) string {
	return loginPath + "?redirect=" + url.QueryEscape(intended)
}
