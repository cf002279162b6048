// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/aetheris-rag/aetheris-tui/internal/chat"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
)

var promptStyle = lipgloss.NewStyle().
	Foreground(styles.Cyan).
	Bold(true)

// replHistoryFile is the liner input history, separate from the query
// log the server answers feed.
const replHistoryFile = "repl_history"

// =============================================================================
// CHAT REPL
// =============================================================================

// replSession holds the interactive loop state.
type replSession struct {
	rt          *Runtime
	line        *liner.State
	historyPath string
	asked       int
}

func newREPLSession(rt *Runtime) *replSession {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}

	s := &replSession{
		rt:          rt,
		line:        line,
		historyPath: filepath.Join(dir, replHistoryFile),
	}
	s.loadHistory()
	return s
}

func (s *replSession) loadHistory() {
	f, err := os.Open(s.historyPath)
	if err != nil {
		return
	}
	defer f.Close()
	s.line.ReadHistory(f)
}

func (s *replSession) close() {
	if f, err := os.OpenFile(s.historyPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600); err == nil {
		s.line.WriteHistory(f)
		f.Close()
	}
	s.line.Close()
}

// HandleChat runs the interactive question loop.
func HandleChat(args Args) error {
	if !IsStdinTTY() {
		return fmt.Errorf("chat needs an interactive terminal; use `aetheris ask` in scripts")
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

	fmt.Printf("signed in as %s - /help for commands, /quit to leave\n", rt.Session.Username())

	s := newREPLSession(rt)
	defer s.close()

	for {
		input, err := s.line.Prompt(promptStyle.Render("aetheris> "))
		if err != nil {
			// Ctrl+C or EOF ends the session.
			fmt.Println()
			s.printSummary()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		s.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !s.handleSlashCommand(ctx, input) {
				s.printSummary()
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			s.printSummary()
			return nil
		}

		s.ask(ctx, chat.AskRequest{Question: input})
	}
}

func (s *replSession) ask(ctx context.Context, req chat.AskRequest) {
	if req.TopK == 0 && s.rt.Config.Chat.TopK > 0 {
		req.TopK = s.rt.Config.Chat.TopK
	}
	if !s.rt.Controller.Ask(ctx, req) {
		return
	}
	s.asked++
	printAnswer(s.rt.Controller.Snapshot(), false)
}

// handleSlashCommand executes a /command; false means quit.
func (s *replSession) handleSlashCommand(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "/q":
		return false

	case "/help", "/?":
		fmt.Println(`commands:
  /retry       ask the previous question again
  /clear       forget the current answer
  /history     show recent questions
  /whoami      show the signed-in user
  /quit        leave`)

	case "/retry":
		if s.rt.Controller.Retry(ctx) {
			printAnswer(s.rt.Controller.Snapshot(), false)
		}

	case "/clear":
		s.rt.Controller.ClearAll()
		fmt.Println("answer cleared")

	case "/history":
		s.printHistory(ctx)

	case "/whoami":
		fmt.Printf("%s <%s>\n", s.rt.Session.Username(), s.rt.Session.Email())

	default:
		fmt.Fprintf(os.Stderr, "unknown command %s (try /help)\n", fields[0])
	}
	return true
}

func (s *replSession) printHistory(ctx context.Context) {
	if s.rt.History == nil {
		fmt.Println("history is disabled")
		return
	}
	entries, err := s.rt.History.Recent(ctx, 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history unavailable: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("no questions yet")
		return
	}
	for _, e := range entries {
		fmt.Printf("%s  %s\n", e.AskedAt.Format("Jan 02 15:04"), e.Question)
	}
}

func (s *replSession) printSummary() {
	if s.asked > 0 {
		fmt.Printf("asked %d question(s) this session\n", s.asked)
	}
}
