// Aetheris TUI - terminal client for the Aetheris RAG service.
//
// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/aetheris-rag/aetheris-tui/internal/cli"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/nav"
	"github.com/aetheris-rag/aetheris-tui/internal/ui"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	var err error
	switch cmd {
	case cli.CmdTUI:
		err = runTUI()
	case cli.CmdLogin:
		err = cli.HandleLogin(args)
	case cli.CmdLogout:
		err = cli.HandleLogout()
	case cli.CmdRegister:
		err = cli.HandleRegister(args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdVersion:
		err = cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI wires the client stack and starts the Bubble Tea program.
func runTUI() error {
	notifier := ui.NewProgramNotifier(log.Printf)
	rt, err := cli.Bootstrap(cli.WithNotifier(notifier))
	if err != nil {
		return err
	}
	defer rt.Close()

	// Bring back the last answer if the snapshot is still fresh.
	rt.Controller.RestoreState()

	table := nav.DefaultTable()
	navigator := nav.NewNavigator(table, rt.Session)

	// The terminal window title follows the active view.
	output := termenv.DefaultOutput()
	navigator.OnAfterNavigate(func(route nav.Route, _ string) {
		output.SetWindowTitle(route.WindowTitle())
	})

	app := ui.NewApp(ui.Deps{
		Config:     rt.Config,
		Session:    rt.Session,
		Navigator:  navigator,
		Controller: rt.Controller,
		History:    rt.History,
		Version:    Version,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if rt.Config.UI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(app, opts...)
	notifier.SetProgram(p)

	// A rejected request anywhere in the stack forces the login view.
	rt.Client.SetUnauthorizedHook(func() {
		p.Send(ui.ForcedLogoutMsg())
	})

	// Reflect config edits without a restart: the app refreshes its
	// theme and markdown renderer from the reloaded file.
	watcher, err := config.NewWatcher(func(cfg *config.Config) {
		p.Send(ui.ConfigReloadedMsg(cfg))
	})
	if err == nil {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run program: %w", err)
	}
	return nil
}
