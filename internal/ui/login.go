// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aetheris-rag/aetheris-tui/internal/auth"
	"github.com/aetheris-rag/aetheris-tui/internal/nav"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
)

// =============================================================================
// LOGIN VIEW
// =============================================================================

// loginModel is the credential form for /login.
type loginModel struct {
	theme *styles.Theme

	email    textinput.Model
	password textinput.Model
	focus    int

	spin       spinner.Model
	submitting bool
	errText    string
}

func newLoginModel(theme *styles.Theme) loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128
	password.Width = 40

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return loginModel{
		theme:    theme,
		email:    email,
		password: password,
		spin:     spin,
	}
}

func (m loginModel) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (m loginModel) Update(msg tea.Msg, deps Deps) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab", "up", "down":
			return m.cycleFocus(), nil
		case "enter":
			return m.submit(deps)
		case "ctrl+r":
			// Switch to the registration form.
			return m, func() tea.Msg {
				return navigateMsg{Path: deps.Navigator.PathByName(nav.RouteRegister)}
			}
		}

	case loginResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			m.password.SetValue("")
			return m, nil
		}
		// The guard now sees a live session; the intended path (if the
		// user was bounced here) is replayed by the App.
		target := nav.RedirectParam(deps.Navigator.CurrentPath())
		if target == "" {
			target = "/"
		}
		return m, func() tea.Msg {
			return navigateMsg{Path: target, Replace: true}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.email, cmd = m.email.Update(msg)
	cmds = append(cmds, cmd)
	m.password, cmd = m.password.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m loginModel) cycleFocus() loginModel {
	m.focus = (m.focus + 1) % 2
	if m.focus == 0 {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.email.Blur()
		m.password.Focus()
	}
	return m
}

func (m loginModel) submit(deps Deps) (loginModel, tea.Cmd) {
	email := strings.TrimSpace(m.email.Value())
	password := m.password.Value()

	m.submitting = true
	m.errText = ""
	req := auth.LoginRequest{Email: email, Password: password}
	return m, tea.Batch(
		m.spin.Tick,
		func() tea.Msg {
			return loginResultMsg{Err: deps.Session.Login(context.Background(), req)}
		},
	)
}

func (m loginModel) View(width int) string {
	var b strings.Builder
	b.WriteString(m.theme.FieldLabel.Render("Email"))
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n\n")
	b.WriteString(m.theme.FieldLabel.Render("Password"))
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")

	switch {
	case m.submitting:
		b.WriteString(m.spin.View() + m.theme.Muted.Render(" signing in..."))
	case m.errText != "":
		b.WriteString(m.theme.NoticeError.Render(m.errText))
	default:
		b.WriteString(m.theme.FormHint.Render("enter to sign in, ctrl+r to register"))
	}

	form := m.theme.FormBox.Render(b.String())
	return lipgloss.Place(max(width, lipgloss.Width(form)), lipgloss.Height(form)+2,
		lipgloss.Center, lipgloss.Top, form)
}
