// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-answering client and its
// reload-surviving interaction state.
//
// The Service is transport glue for the retrieval endpoint. The
// Controller owns the latest query/answer cycle: it resets every result
// field before a request goes out (a consumer never sees a new request's
// loading state mixed with a previous answer), remembers the exact
// request payload for retry, and snapshots the whole cycle through the
// statestore so it survives a client restart.
//
// # Key Types
//
//   - Service: POST /chat/ask client
//   - Controller: interaction state, retry, persistence
//   - Citation, CitationLocation: answer evidence with a tagged
//     location variant (pdf page range or markdown chapter path)
//   - QueryState: the persisted snapshot payload
//
// # Usage
//
//	ctrl := chat.NewController(service, mgr, backend)
//	ctrl.RestoreState()
//	ctrl.Ask(ctx, chat.AskRequest{Question: "What is RAG?"})
package chat
