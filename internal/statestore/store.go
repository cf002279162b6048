// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package statestore provides TTL-bounded persistence for a single value.
package statestore

import (
	"encoding/json"
	"log"
	"time"

	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// Defaults for persisted interaction state.
const (
	// DefaultTTL is how long persisted state stays restorable.
	DefaultTTL = 24 * time.Hour

	// DefaultMaxBytes caps the serialized envelope size. Larger payloads
	// are dropped instead of written.
	DefaultMaxBytes = 4 * 1024 * 1024
)

// envelope wraps a payload with its save timestamp for TTL expiry.
type envelope[T any] struct {
	Payload T     `json:"payload"`
	SavedAt int64 `json:"saved_at_ms"` // epoch milliseconds
}

// =============================================================================
// STORE
// =============================================================================

// Store persists one payload of type T under one storage key with a TTL.
//
// Store never surfaces an error: failed saves are dropped, expired or
// corrupt state reads as absent and is cleared. See the package doc for
// the failure policy.
type Store[T any] struct {
	backend  storage.Backend
	key      string
	ttl      time.Duration
	maxBytes int
	now      func() time.Time
	logf     func(format string, args ...any)
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithTTL overrides the default 24h TTL.
func WithTTL[T any](ttl time.Duration) Option[T] {
	return func(s *Store[T]) { s.ttl = ttl }
}

// WithMaxBytes overrides the default 4 MiB serialized-size cap.
func WithMaxBytes[T any](n int) Option[T] {
	return func(s *Store[T]) { s.maxBytes = n }
}

// WithClock overrides the time source. Used by tests to cross the TTL
// boundary deterministically.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(s *Store[T]) { s.now = now }
}

// WithLogf overrides the logger for absorbed failures.
func WithLogf[T any](logf func(format string, args ...any)) Option[T] {
	return func(s *Store[T]) { s.logf = logf }
}

// New creates a Store for one key on the given backend.
func New[T any](backend storage.Backend, key string, opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		backend:  backend,
		key:      key,
		ttl:      DefaultTTL,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logf:     log.Printf,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save wraps payload with the current timestamp and writes it. Oversized
// payloads and write failures are dropped with a log line only.
func (s *Store[T]) Save(payload T) {
	env := envelope[T]{
		Payload: payload,
		SavedAt: s.now().UnixMilli(),
	}

	data, err := json.Marshal(env)
	if err != nil {
		s.logf("statestore: skipping save of %q: %v", s.key, err)
		return
	}
	if len(data) > s.maxBytes {
		s.logf("statestore: state for %q too large (%d bytes), skipping save", s.key, len(data))
		return
	}
	if err := s.backend.Set(s.key, data); err != nil {
		s.logf("statestore: failed to save %q: %v", s.key, err)
	}
}

// Restore reads the persisted payload. It reports ok=false when nothing
// usable is stored: absent key, expired envelope (cleared on detection),
// or state that fails to deserialize (also cleared).
func (s *Store[T]) Restore() (T, bool) {
	var zero T

	data, ok, err := s.backend.Get(s.key)
	if err != nil {
		s.logf("statestore: failed to read %q: %v", s.key, err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var env envelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt state must never propagate; drop it.
		s.logf("statestore: corrupt state for %q, clearing: %v", s.key, err)
		s.Clear()
		return zero, false
	}

	savedAt := time.UnixMilli(env.SavedAt)
	if s.now().Sub(savedAt) > s.ttl {
		s.Clear()
		return zero, false
	}

	return env.Payload, true
}

// Clear removes the persisted state. Safe to call when absent.
func (s *Store[T]) Clear() {
	if err := s.backend.Delete(s.key); err != nil {
		s.logf("statestore: failed to clear %q: %v", s.key, err)
	}
}
