// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package statestore provides TTL-bounded persistence for a single value.
//
// A Store wraps one logical key in a storage.Backend: every Save stamps
// the payload with the current time, every Restore discards payloads
// older than the TTL, and oversized or unreadable state silently degrades
// to "nothing persisted". The store exists so short-lived interaction
// state can survive a client restart without the caller ever having to
// handle a persistence failure.
//
// # Key Types
//
//   - Store[T]: save/restore/clear for one payload type under one key
//
// # Failure Policy
//
// No method returns an error. A payload whose serialized form exceeds the
// size cap is not written; expired or corrupt state is cleared on read.
// All failures are logged and absorbed: persistence must never break the
// caller's main flow.
//
// # Usage
//
//	store := statestore.New[QueryState](backend, storage.KeyChatState)
//	store.Save(state)
//	if state, ok := store.Restore(); ok {
//	    // resume from snapshot
//	}
package statestore
