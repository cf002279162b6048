// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the Bubble Tea terminal interface for Aetheris.
//
// The root App model owns the active view and routes every view change
// through the navigation guard, so an expired session can never land on
// a protected screen. Views are plain sub-models: Login, Register, Home
// (recent questions) and Chat (ask/answer with citations).
//
// # Key Types
//
//   - App: Root model; dispatches messages to the active view
//   - loginModel / registerModel: Credential forms
//   - homeModel: Landing view with the recent query log
//   - chatModel: Question input, rendered answer, citations
//
// # Navigation
//
// Views never switch themselves. They emit a navigateMsg; the App asks
// the Navigator, which may redirect (e.g. to /login with the intended
// path preserved) or wait for an in-flight session validation before
// answering.
package ui
