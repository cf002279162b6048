// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types shared by the views.
// Messages are organized into the following categories:
//   - Navigation: view-change requests and results
//   - Session: login, registration, logout, forced logout
//   - Config: live configuration reloads
//   - Chat: question submission results
//   - Notices: transient status line text

package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aetheris-rag/aetheris-tui/internal/auth"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/history"
	"github.com/aetheris-rag/aetheris-tui/internal/nav"
)

// =============================================================================
// NAVIGATION MESSAGES
// =============================================================================

// navigateMsg asks the App to move to a path. Views emit this instead
// of switching themselves.
type navigateMsg struct {
	Path    string
	Replace bool
}

// navigatedMsg reports where the Navigator actually landed, which may
// differ from the requested path after a guard redirect.
type navigatedMsg struct {
	Route nav.Route
	Path  string
	Err   error
}

// backMsg pops the history stack.
type backMsg struct{}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// sessionReadyMsg fires once startup validation settles.
type sessionReadyMsg struct {
	LoggedIn bool
}

// loginResultMsg reports a login attempt.
type loginResultMsg struct {
	Err error
}

// registerResultMsg reports a registration attempt.
type registerResultMsg struct {
	User *auth.UserInfo
	Err  error
}

// loggedOutMsg reports that the session ended, voluntarily or through a
// rejected request.
type loggedOutMsg struct {
	Forced bool
}

// ForcedLogoutMsg builds the message the entrypoint sends when the API
// rejects the stored token mid-session.
func ForcedLogoutMsg() tea.Msg {
	return loggedOutMsg{Forced: true}
}

// configReloadedMsg carries a freshly reloaded configuration.
type configReloadedMsg struct {
	Config *config.Config
}

// ConfigReloadedMsg builds the message the config watcher sends when
// the file on disk changes.
func ConfigReloadedMsg(cfg *config.Config) tea.Msg {
	return configReloadedMsg{Config: cfg}
}

// =============================================================================
// CHAT MESSAGES
// =============================================================================

// askResultMsg reports a question submission. The answer itself is read
// from the controller snapshot so there is a single source of truth.
type askResultMsg struct {
	OK bool
}

// historyLoadedMsg delivers recent questions for the home view.
type historyLoadedMsg struct {
	Entries []history.Entry
	Err     error
}

// =============================================================================
// NOTICE MESSAGES
// =============================================================================

// noticeLevel grades a transient status message.
type noticeLevel int

const (
	noticeSuccess noticeLevel = iota
	noticeInfo
	noticeWarning
	noticeError
)

// noticeMsg shows a transient message in the status line.
type noticeMsg struct {
	Level noticeLevel
	Text  string
	At    time.Time
}

// clearNoticeMsg hides an expired notice.
type clearNoticeMsg struct {
	At time.Time
}
