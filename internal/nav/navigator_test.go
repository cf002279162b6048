// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package nav

import (
	"context"
	"reflect"
	"sync"
	"testing"
)

func TestNavigator_PushAndBack(t *testing.T) {
	navigator := NewNavigator(DefaultTable(), &fakeSession{loggedIn: true})

	if _, err := navigator.Navigate(context.Background(), "/"); err != nil {
		t.Fatalf("Navigate(/) failed: %v", err)
	}
	if _, err := navigator.Navigate(context.Background(), "/resources"); err != nil {
		t.Fatalf("Navigate(/resources) failed: %v", err)
	}

	want := []string{"/", "/resources"}
	if got := navigator.History(); !reflect.DeepEqual(got, want) {
		t.Errorf("History = %v, want %v", got, want)
	}

	if route := navigator.Back(); route.Name != RouteHome {
		t.Errorf("Back = %s, want Home", route.Name)
	}
	if got := navigator.History(); !reflect.DeepEqual(got, []string{"/"}) {
		t.Errorf("History after Back = %v", got)
	}
}

func TestNavigator_RedirectLeavesNoEntryForDeniedPath(t *testing.T) {
	navigator := NewNavigator(DefaultTable(), &fakeSession{})

	route, err := navigator.Navigate(context.Background(), "/resources/42")
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if route.Name != RouteLogin {
		t.Errorf("landed on %s, want Login", route.Name)
	}

	// The denied path itself must not appear in history; the attempted
	// target rides along in the login path's query for the return trip.
	want := []string{"/login?redirect=%2Fresources%2F42"}
	if got := navigator.History(); !reflect.DeepEqual(got, want) {
		t.Errorf("History = %v, want %v", got, want)
	}
	if got := RedirectParam(navigator.CurrentPath()); got != "/resources/42" {
		t.Errorf("preserved redirect = %q", got)
	}
}

func TestNavigator_LogoutThenGuardedRouteRedirects(t *testing.T) {
	session := &fakeSession{loggedIn: true}
	navigator := NewNavigator(DefaultTable(), session)
	if _, err := navigator.Navigate(context.Background(), "/chat"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	// logout
	session.mu.Lock()
	session.loggedIn = false
	session.mu.Unlock()

	route, err := navigator.Navigate(context.Background(), "/resources")
	if err != nil {
		t.Fatalf("Navigate after logout failed: %v", err)
	}
	if route.Name != RouteLogin {
		t.Errorf("landed on %s, want Login", route.Name)
	}
	if got := RedirectParam(navigator.CurrentPath()); got != "/resources" {
		t.Errorf("preserved redirect = %q", got)
	}
}

func TestNavigator_ReplayedNavigationReplacesEntry(t *testing.T) {
	session := &fakeSession{loggedIn: true}
	navigator := NewNavigator(DefaultTable(), session)
	if _, err := navigator.Navigate(context.Background(), "/"); err != nil {
		t.Fatalf("Navigate(/) failed: %v", err)
	}

	session.beginValidation()

	done := make(chan Route, 1)
	go func() {
		route, err := navigator.Navigate(context.Background(), "/chat")
		if err != nil {
			t.Errorf("blocked Navigate failed: %v", err)
		}
		done <- route
	}()

	session.awaitObservers(t, 1)
	session.finishValidation(true)
	route := <-done

	if route.Name != RouteChat {
		t.Errorf("landed on %s, want Chat", route.Name)
	}
	// Replay replaces the current entry: no extra history growth.
	want := []string{"/chat"}
	if got := navigator.History(); !reflect.DeepEqual(got, want) {
		t.Errorf("History = %v, want %v", got, want)
	}
}

func TestNavigator_ConcurrentBlockedNavigationsKeepHistorySane(t *testing.T) {
	session := &fakeSession{loggedIn: true}
	navigator := NewNavigator(DefaultTable(), session)
	if _, err := navigator.Navigate(context.Background(), "/"); err != nil {
		t.Fatalf("Navigate(/) failed: %v", err)
	}

	session.beginValidation()

	var wg sync.WaitGroup
	paths := []string{"/chat", "/resources", "/resources/upload"}
	for _, p := range paths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if _, err := navigator.Navigate(context.Background(), p); err != nil {
				t.Errorf("Navigate(%q) failed: %v", p, err)
			}
		}(p)
	}

	session.awaitObservers(t, len(paths))
	session.finishValidation(true)
	wg.Wait()

	// Each replay replaced the top entry: the history never grew past
	// the single pre-validation entry.
	if got := navigator.History(); len(got) != 1 {
		t.Errorf("History = %v, want exactly one entry", got)
	}
}

func TestNavigator_AfterHooksFireOnCompletedNavigation(t *testing.T) {
	navigator := NewNavigator(DefaultTable(), &fakeSession{loggedIn: true})

	var titles []string
	navigator.OnAfterNavigate(func(route Route, path string) {
		titles = append(titles, route.WindowTitle())
	})

	if _, err := navigator.Navigate(context.Background(), "/chat"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if len(titles) != 1 || titles[0] != "Ask - Aetheris RAG" {
		t.Errorf("titles = %v", titles)
	}
}

func TestNavigator_HookFiresOncePerAttemptAcrossRedirect(t *testing.T) {
	navigator := NewNavigator(DefaultTable(), &fakeSession{})

	var fired int
	navigator.OnAfterNavigate(func(Route, string) { fired++ })

	// Denied + redirected: only the completed login navigation runs hooks.
	if _, err := navigator.Navigate(context.Background(), "/resources"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}
	if fired != 1 {
		t.Errorf("hooks fired %d times, want 1", fired)
	}
}
