// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aetheris-rag/aetheris-tui/internal/chat"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	citationStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Bold(true)

	locationStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)

	mutedStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for answer output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		markdownRenderer = nil
	}
}

func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer prints the answer, rendering markdown only on a TTY so
// piped output stays clean.
func displayAnswer(answer string, plain bool) {
	if !plain && IsStdoutTTY() {
		fmt.Print(renderMarkdown(answer))
	} else {
		fmt.Println(answer)
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// cliNotifier keeps controller notices off stdout so the answer stays
// pipeable.
type cliNotifier struct{}

func (cliNotifier) Success(string)      {}
func (cliNotifier) Info(msg string)     { fmt.Fprintln(os.Stderr, mutedStyle.Render(msg)) }
func (cliNotifier) Warning(msg string)  { fmt.Fprintln(os.Stderr, warningStyle.Render(msg)) }
func (cliNotifier) Error(msg string)    { fmt.Fprintln(os.Stderr, errorStyle.Render(msg)) }

// HandleAsk submits one question and prints the answer with citations.
func HandleAsk(args Args) error {
	if args.Question == "" {
		return fmt.Errorf("usage: aetheris ask <question>")
	}

	rt, err := Bootstrap(WithNotifier(cliNotifier{}))
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	rt.Session.Initialize(ctx)
	if !rt.Session.IsLoggedIn() {
		return fmt.Errorf("not signed in - run `aetheris login` first")
	}

	req := chat.AskRequest{Question: args.Question}
	if args.TopK > 0 {
		req.TopK = args.TopK
	} else if rt.Config.Chat.TopK > 0 {
		req.TopK = rt.Config.Chat.TopK
	}
	if args.NoRAG {
		useRAG := false
		req.UseRAG = &useRAG
	}

	if !rt.Controller.Ask(ctx, req) {
		// The notifier already printed the reason.
		return fmt.Errorf("question failed")
	}

	printAnswer(rt.Controller.Snapshot(), args.Plain)
	return nil
}

// printAnswer writes the full result: answer, citations, fallbacks.
func printAnswer(state chat.QueryState, plain bool) {
	if state.Answer != "" {
		displayAnswer(state.Answer, plain)
	}

	if state.EvidenceInsufficient {
		fmt.Fprintln(os.Stderr, warningStyle.Render("evidence was thin for this answer"))
	}

	for i, c := range state.Citations {
		line := citationStyle.Render(fmt.Sprintf("[%d] %s", i+1, c.ResourceTitle))
		if c.Location != nil {
			line += " " + locationStyle.Render(c.Location.String())
		}
		fmt.Println(line)
		if c.Snippet != "" {
			fmt.Println("    " + c.Snippet)
		}
	}

	if len(state.FallbackResources) > 0 {
		fmt.Println(warningStyle.Render("related resources:"))
		for _, r := range state.FallbackResources {
			fmt.Printf("  - %s\n", r.Title)
		}
	}

	if state.LatencyMs > 0 {
		fmt.Fprintln(os.Stderr, mutedStyle.Render(fmt.Sprintf("answered in %dms", state.LatencyMs)))
	}
}
