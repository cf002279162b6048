// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aetheris-rag/aetheris-tui/internal/history"
	"github.com/aetheris-rag/aetheris-tui/internal/nav"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
	"github.com/aetheris-rag/aetheris-tui/internal/util"
)

// homeRecentLimit is how many recent questions the landing view shows.
const homeRecentLimit = 8

// =============================================================================
// HOME VIEW
// =============================================================================

// homeModel is the landing view: a greeting plus the recent query log.
type homeModel struct {
	theme   *styles.Theme
	version string

	width  int
	height int

	entries []history.Entry
	histErr string
}

func newHomeModel(theme *styles.Theme, version string) homeModel {
	return homeModel{theme: theme, version: version}
}

func (m *homeModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

// enter refreshes the recent questions each time the view is shown.
func (m *homeModel) enter(deps Deps) tea.Cmd {
	if deps.History == nil {
		return nil
	}
	store := deps.History
	return func() tea.Msg {
		entries, err := store.Recent(context.Background(), homeRecentLimit)
		return historyLoadedMsg{Entries: entries, Err: err}
	}
}

func (m homeModel) Update(msg tea.Msg, deps Deps) (homeModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			m.histErr = msg.Err.Error()
			return m, nil
		}
		m.entries = msg.Entries
		m.histErr = ""
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "c", "enter":
			return m, func() tea.Msg {
				return navigateMsg{Path: deps.Navigator.PathByName(nav.RouteChat)}
			}
		case "L":
			return m, func() tea.Msg {
				return loggedOutMsg{}
			}
		}
	}
	return m, nil
}

func (m homeModel) View(width int) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(m.theme.HeaderTitle.Render("  Welcome back"))
	if m.version != "" {
		b.WriteString(m.theme.Muted.Render("  v" + m.version))
	}
	b.WriteString("\n\n")

	b.WriteString(m.theme.FieldLabel.Render("  Recent questions"))
	b.WriteString("\n")
	switch {
	case m.histErr != "":
		b.WriteString(m.theme.Muted.Render("  history unavailable"))
		b.WriteString("\n")
	case len(m.entries) == 0:
		b.WriteString(m.theme.Muted.Render("  nothing yet - press c to ask your first question"))
		b.WriteString("\n")
	default:
		for _, e := range m.entries {
			line := fmt.Sprintf("  %s %s",
				m.theme.Muted.Render(e.AskedAt.Format("Jan 02 15:04")),
				util.TruncateWidth(e.Question, max(20, width-24)))
			if e.EvidenceInsufficient {
				line += " " + m.theme.NoticeWarning.Render("(thin evidence)")
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString("  " + m.theme.ShortcutKey.Render("c") + m.theme.ShortcutDesc.Render(" chat  "))
	b.WriteString(m.theme.ShortcutKey.Render("L") + m.theme.ShortcutDesc.Render(" log out"))
	b.WriteString("\n")

	return b.String()
}
