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
// REGISTER VIEW
// =============================================================================

// registerModel is the account creation form for /register.
type registerModel struct {
	theme *styles.Theme

	inputs []textinput.Model // username, email, password
	focus  int

	spin       spinner.Model
	submitting bool
	errText    string
	success    bool
}

func newRegisterModel(theme *styles.Theme) registerModel {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Width = 40
	username.Focus()

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 254
	email.Width = 40

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.CharLimit = 128
	password.Width = 40

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return registerModel{
		theme:  theme,
		inputs: []textinput.Model{username, email, password},
		spin:   spin,
	}
}

func (m registerModel) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (m registerModel) Update(msg tea.Msg, deps Deps) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.setFocus(m.focus + 1), nil
		case "shift+tab", "up":
			return m.setFocus(m.focus - 1), nil
		case "enter":
			if m.success {
				return m, func() tea.Msg {
					return navigateMsg{Path: deps.Navigator.PathByName(nav.RouteLogin), Replace: true}
				}
			}
			return m.submit(deps)
		case "esc":
			return m, func() tea.Msg {
				return navigateMsg{Path: deps.Navigator.PathByName(nav.RouteLogin)}
			}
		}

	case registerResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.errText = msg.Err.Error()
			return m, nil
		}
		// Registration does not sign the user in; they confirm their
		// new credentials on the login form.
		m.success = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	cmds := make([]tea.Cmd, len(m.inputs))
	for i := range m.inputs {
		m.inputs[i], cmds[i] = m.inputs[i].Update(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m registerModel) setFocus(target int) registerModel {
	if target < 0 {
		target = len(m.inputs) - 1
	}
	m.focus = target % len(m.inputs)
	for i := range m.inputs {
		if i == m.focus {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
	return m
}

func (m registerModel) submit(deps Deps) (registerModel, tea.Cmd) {
	req := auth.RegisterRequest{
		Username: strings.TrimSpace(m.inputs[0].Value()),
		Email:    strings.TrimSpace(m.inputs[1].Value()),
		Password: m.inputs[2].Value(),
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		m.errText = "all fields are required"
		return m, nil
	}

	m.submitting = true
	m.errText = ""
	return m, tea.Batch(
		m.spin.Tick,
		func() tea.Msg {
			user, err := deps.Session.Register(context.Background(), req)
			return registerResultMsg{User: user, Err: err}
		},
	)
}

func (m registerModel) View(width int) string {
	labels := []string{"Username", "Email", "Password"}

	var b strings.Builder
	for i, input := range m.inputs {
		label := m.theme.FieldLabel
		if i == m.focus {
			label = m.theme.FieldFocused
		}
		b.WriteString(label.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n\n")
	}

	switch {
	case m.submitting:
		b.WriteString(m.spin.View() + m.theme.Muted.Render(" creating account..."))
	case m.success:
		b.WriteString(m.theme.NoticeSuccess.Render("account created - press enter to sign in"))
	case m.errText != "":
		b.WriteString(m.theme.NoticeError.Render(m.errText))
	default:
		b.WriteString(m.theme.FormHint.Render("enter to register, esc for sign in"))
	}

	form := m.theme.FormBox.Render(b.String())
	return lipgloss.Place(max(width, lipgloss.Width(form)), lipgloss.Height(form)+2,
		lipgloss.Center, lipgloss.Top, form)
}
