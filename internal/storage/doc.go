// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides keyed durable storage for the aetheris client.
//
// All client state that survives restarts (bearer token, cached profile,
// interaction snapshots) is written through a Backend, an injected
// read/write/clear-by-key capability. Nothing else in the application
// touches the filesystem for state; callers that need persistence take a
// Backend and can be handed a MemoryBackend in tests.
//
// # Key Types
//
//   - Backend: keyed Get/Set/Delete capability
//   - FileBackend: one file per key with atomic writes
//   - MemoryBackend: in-memory fake for tests
//   - EncryptedBackend: AES-GCM at-rest encryption wrapper
//
// # Storage Keys
//
//   - KeyToken: raw bearer token string
//   - KeyUserInfo: cached profile (JSON)
//   - KeyChatState: interaction snapshot envelope (JSON)
//
// # Usage
//
//	backend, err := storage.NewFileBackend(dir)
//	if err != nil {
//	    return err
//	}
//	if err := backend.Set(storage.KeyToken, []byte(token)); err != nil {
//	    return err
//	}
package storage
