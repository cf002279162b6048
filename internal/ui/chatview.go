// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/aetheris-rag/aetheris-tui/internal/chat"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
)

// answerWrapWidth bounds markdown rendering on very wide terminals.
const answerWrapWidth = 100

// =============================================================================
// CHAT VIEW
// =============================================================================

// chatModel is the ask/answer view. The chat.Controller owns the query
// state; this model only renders its snapshot and forwards input.
type chatModel struct {
	theme *styles.Theme
	cfg   *config.Config

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	width  int
	height int
	ready  bool

	asking   bool
	renderer *glamour.TermRenderer
}

func newChatModel(theme *styles.Theme, cfg *config.Config) chatModel {
	input := textinput.New()
	input.Placeholder = "ask the knowledge base..."
	input.CharLimit = 2000

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	return chatModel{
		theme:    theme,
		cfg:      cfg,
		input:    input,
		spin:     spin,
		renderer: newMarkdownRenderer(cfg),
	}
}

// newMarkdownRenderer builds the glamour renderer for answers. A nil
// renderer falls back to plain text.
func newMarkdownRenderer(cfg *config.Config) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(answerWrapWidth)}
	style := "auto"
	if cfg != nil {
		style = cfg.UI.MarkdownStyle
	}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil
	}
	return renderer
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) setSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = max(20, width-6)

	// Header, input row and status bar take four lines.
	vpHeight := max(3, height-4)
	if !m.ready {
		m.viewport = viewport.New(max(20, width-2), vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = max(20, width-2)
		m.viewport.Height = vpHeight
	}
}

// reconfigure swaps in a reloaded configuration, rebuilding the
// markdown renderer in case the style changed.
func (m *chatModel) reconfigure(cfg *config.Config) {
	m.cfg = cfg
	m.renderer = newMarkdownRenderer(cfg)
}

// enter restores persisted state and refreshes the transcript.
func (m *chatModel) enter(deps Deps) tea.Cmd {
	m.refresh(deps)
	return m.input.Focus()
}

func (m chatModel) Update(msg tea.Msg, deps Deps) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.asking {
				return m, nil
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				return m, nil
			}
			return m.ask(deps, question)
		case "ctrl+r":
			if m.asking {
				return m, nil
			}
			return m.retry(deps)
		case "ctrl+l":
			deps.Controller.ClearAll()
			m.refresh(deps)
			return m, nil
		case "esc":
			return m, func() tea.Msg { return backMsg{} }
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case askResultMsg:
		m.asking = false
		if msg.OK {
			m.input.SetValue("")
		}
		m.refresh(deps)
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if !m.asking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) ask(deps Deps, question string) (chatModel, tea.Cmd) {
	m.asking = true
	req := chat.AskRequest{Question: question}
	if m.cfg != nil && m.cfg.Chat.TopK > 0 {
		req.TopK = m.cfg.Chat.TopK
	}
	return m, tea.Batch(
		m.spin.Tick,
		func() tea.Msg {
			return askResultMsg{OK: deps.Controller.Ask(context.Background(), req)}
		},
	)
}

func (m chatModel) retry(deps Deps) (chatModel, tea.Cmd) {
	m.asking = true
	return m, tea.Batch(
		m.spin.Tick,
		func() tea.Msg {
			return askResultMsg{OK: deps.Controller.Retry(context.Background())}
		},
	)
}

// refresh re-renders the controller snapshot into the viewport.
func (m *chatModel) refresh(deps Deps) {
	state := deps.Controller.Snapshot()
	m.viewport.SetContent(m.renderState(state, deps.Controller.LastError()))
}

func (m *chatModel) renderState(state chat.QueryState, lastErr string) string {
	var b strings.Builder

	if lastErr != "" {
		b.WriteString(m.theme.NoticeError.Render(lastErr))
		b.WriteString("\n\n")
	}

	if state.Answer == "" && len(state.FallbackResources) == 0 {
		if lastErr == "" {
			b.WriteString(m.theme.Muted.Render("ask a question to search the knowledge base"))
		}
		return b.String()
	}

	if state.LastRequest != nil {
		b.WriteString(m.theme.FieldLabel.Render("Q: " + state.LastRequest.Question))
		b.WriteString("\n\n")
	}

	if state.Answer != "" {
		b.WriteString(m.theme.AnswerBox.Render(m.renderMarkdown(state.Answer)))
		b.WriteString("\n")
	}

	if state.EvidenceInsufficient {
		b.WriteString(m.theme.NoticeWarning.Render("evidence was thin for this answer"))
		b.WriteString("\n\n")
	}

	for i, c := range state.Citations {
		b.WriteString(m.renderCitation(i+1, c))
		b.WriteString("\n")
	}

	if len(state.FallbackResources) > 0 {
		b.WriteString(m.theme.FallbackTitle.Render("Related resources"))
		b.WriteString("\n")
		for _, r := range state.FallbackResources {
			b.WriteString("  " + m.theme.CitationSource.Render(r.Title))
			if r.Description != "" {
				b.WriteString(" " + m.theme.Muted.Render(r.Description))
			}
			b.WriteString("\n")
		}
	}

	if state.LatencyMs > 0 {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("answered in %dms", state.LatencyMs)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *chatModel) renderCitation(n int, c chat.Citation) string {
	head := m.theme.CitationSource.Render(fmt.Sprintf("[%d] %s", n, c.ResourceTitle))
	if c.Location != nil {
		head += " " + m.theme.CitationLoc.Render(c.Location.String())
	}
	head += " " + m.theme.CitationScore.Render(fmt.Sprintf("%.2f", c.Score))

	body := head
	if c.Snippet != "" {
		body += "\n" + c.Snippet
	}
	return m.theme.CitationBox.Width(max(20, m.viewport.Width-4)).Render(body)
}

func (m *chatModel) renderMarkdown(content string) string {
	if m.renderer == nil {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func (m chatModel) View(width, height int) string {
	var status string
	if m.asking {
		status = m.spin.View() + m.theme.Muted.Render(" thinking...")
	} else {
		status = m.theme.ShortcutKey.Render("enter") + m.theme.ShortcutDesc.Render(" ask  ") +
			m.theme.ShortcutKey.Render("ctrl+r") + m.theme.ShortcutDesc.Render(" retry  ") +
			m.theme.ShortcutKey.Render("ctrl+l") + m.theme.ShortcutDesc.Render(" clear  ") +
			m.theme.ShortcutKey.Render("esc") + m.theme.ShortcutDesc.Render(" back")
	}

	return m.viewport.View() + "\n" +
		m.input.View() + "\n" +
		m.theme.Container.Render(status)
}
