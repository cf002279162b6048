// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the command-line interface for Aetheris.
//
// The CLI covers scripted use of the same client the TUI wraps: sign
// in and out, one-shot questions with rendered answers, an interactive
// REPL with input history, and a session status report.
//
// # Commands
//
//   - login / logout: session management
//   - register: account creation
//   - ask: one question, markdown-rendered answer with citations
//   - chat: interactive REPL (liner history, slash commands)
//   - status: session, server and history summary
//   - version: build information
//
// Running with no command starts the TUI (handled in main).
package cli
