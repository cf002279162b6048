// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (set at build time via main).
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command identifies the requested subcommand.
type Command int

const (
	CmdTUI Command = iota // default: run the terminal UI
	CmdLogin
	CmdLogout
	CmdRegister
	CmdAsk
	CmdChat
	CmdStatus
	CmdVersion
	CmdHelp
)

// Args carries parsed flags and positional arguments.
type Args struct {
	// Question is the joined positional text for ask.
	Question string

	// TopK overrides the configured retrieval depth (0 = config).
	TopK int

	// NoRAG asks the server to answer without retrieval.
	NoRAG bool

	// Plain disables markdown rendering even on a TTY.
	Plain bool

	// JSON switches status/version output to JSON.
	JSON bool

	// Email is the non-interactive login identity.
	Email string
}

const usageText = `aetheris - terminal client for the Aetheris RAG service

USAGE:
  aetheris                 Start the terminal UI
  aetheris login           Sign in (prompts for credentials)
  aetheris logout          Sign out and clear the stored session
  aetheris register        Create an account
  aetheris ask <question>  Ask one question and print the answer
  aetheris chat            Interactive question REPL
  aetheris status          Show session and server status
  aetheris version         Show version information

ASK OPTIONS:
  --top-k <n>     Retrieval depth (default: server decides)
  --no-rag        Answer without retrieval
  --plain         Plain text output (no markdown rendering)

GLOBAL OPTIONS:
  --json          JSON output where supported (status, version)
  -h, --help      Show this help

ENVIRONMENT:
  AETHERIS_SERVER_URL   API base URL
  AETHERIS_DATA_DIR     Data directory (default ~/.aetheris)
  AETHERIS_THEME        TUI theme: auto, dark, light
`

// PrintUsage writes the usage text to stdout.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion writes build information.
func PrintVersion() {
	fmt.Printf("aetheris %s (%s, %s, %s/%s)\n",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	var args Args

	rest := make([]string, 0, len(argv))
	for i := 0; i < len(argv); i++ {
		switch arg := argv[i]; arg {
		case "-h", "--help":
			return CmdHelp, args
		case "--json":
			args.JSON = true
		case "--plain":
			args.Plain = true
		case "--no-rag":
			args.NoRAG = true
		case "--top-k":
			if i+1 < len(argv) {
				i++
				if n, err := strconv.Atoi(argv[i]); err == nil && n > 0 {
					args.TopK = n
				}
			}
		case "--email":
			if i+1 < len(argv) {
				i++
				args.Email = argv[i]
			}
		default:
			rest = append(rest, arg)
		}
	}

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := rest[0]
	rest = rest[1:]
	switch cmd {
	case "login":
		return CmdLogin, args
	case "logout":
		return CmdLogout, args
	case "register":
		return CmdRegister, args
	case "ask":
		args.Question = strings.Join(rest, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "status":
		return CmdStatus, args
	case "version", "--version", "-v":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		// Bare text is a question, matching `ask`.
		args.Question = strings.Join(append([]string{cmd}, rest...), " ")
		return CmdAsk, args
	}
}
