// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Aetheris
// TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// APPLICATION CONTAINER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// FORM STYLES
	// ==========================================================================

	FormBox      lipgloss.Style
	FieldLabel   lipgloss.Style
	FieldFocused lipgloss.Style
	FormHint     lipgloss.Style

	// ==========================================================================
	// NOTICE STYLES
	// ==========================================================================

	NoticeSuccess lipgloss.Style
	NoticeInfo    lipgloss.Style
	NoticeWarning lipgloss.Style
	NoticeError   lipgloss.Style

	// ==========================================================================
	// ANSWER AND CITATION STYLES
	// ==========================================================================

	AnswerBox      lipgloss.Style
	CitationBox    lipgloss.Style
	CitationSource lipgloss.Style
	CitationLoc    lipgloss.Style
	CitationScore  lipgloss.Style
	FallbackTitle  lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusUser   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MISC STYLES
	// ==========================================================================

	Spinner  lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
}

// NewTheme constructs a theme for the current terminal.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// NewThemeForMode forces the light/dark decision instead of detecting.
func NewThemeForMode(dark bool) *Theme {
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(IndigoDeep).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.FormBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(1, 2)
	t.FieldLabel = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.FieldFocused = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.FormHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.NoticeSuccess = lipgloss.NewStyle().Foreground(Emerald)
	t.NoticeInfo = lipgloss.NewStyle().Foreground(Cyan)
	t.NoticeWarning = lipgloss.NewStyle().Foreground(Amber)
	t.NoticeError = lipgloss.NewStyle().Foreground(Rose)

	t.AnswerBox = lipgloss.NewStyle().
		Padding(0, 1)
	t.CitationBox = lipgloss.NewStyle().
		Background(CitationBg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(CitationBorder).
		Padding(0, 1)
	t.CitationSource = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)
	t.CitationLoc = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.CitationScore = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.FallbackTitle = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusUser = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Selected = lipgloss.NewStyle().
		Background(Indigo).
		Foreground(TextInverse)
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
