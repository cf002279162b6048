// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides keyed durable storage for the aetheris client.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aetheris-rag/aetheris-tui/internal/util"
)

// Well-known storage keys. The session manager owns KeyToken and
// KeyUserInfo; KeyChatState belongs to the chat controller.
const (
	KeyToken     = "token"
	KeyUserInfo  = "user_info"
	KeyChatState = "chat_state"
)

// ErrInvalidKey is returned for keys that cannot be mapped to a file name.
var ErrInvalidKey = errors.New("invalid storage key")

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a keyed read/write/clear capability for durable client state.
//
// Get reports ok=false when the key is absent. Delete of an absent key is
// not an error.
type Backend interface {
	Get(key string) (data []byte, ok bool, err error)
	Set(key string, data []byte) error
	Delete(key string) error
}

// =============================================================================
// FILE BACKEND
// =============================================================================

// FileBackend stores each key as one file in a base directory.
// Writes are atomic (temp file + fsync + rename).
type FileBackend struct {
	// BaseDir is the directory holding one file per key.
	// Default: ~/.aetheris/state/
	BaseDir string
}

// DefaultStateDir returns the default state directory (~/.aetheris/state).
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".aetheris", "state"), nil
}

// NewFileBackend creates a file backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileBackend{BaseDir: dir}, nil
}

// filePath maps a key to its on-disk location. Keys are restricted to a
// safe character set so a key can never escape BaseDir.
func (b *FileBackend) filePath(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(b.BaseDir, key+".dat"), nil
}

// Get reads the value stored under key.
func (b *FileBackend) Get(key string) ([]byte, bool, error) {
	path, err := b.filePath(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes the value under key atomically.
func (b *FileBackend) Set(key string, data []byte) error {
	path, err := b.filePath(key)
	if err != nil {
		return err
	}
	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(path, data, 0600)
}

// Delete removes the value under key. Deleting an absent key is a no-op.
func (b *FileBackend) Delete(key string) error {
	path, err := b.filePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// =============================================================================
// MEMORY BACKEND
// =============================================================================

// MemoryBackend is an in-memory Backend for tests.
type MemoryBackend struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{m: make(map[string][]byte)}
}

// Get reads the value stored under key.
func (b *MemoryBackend) Get(key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, true, nil
}

// Set writes the value under key.
func (b *MemoryBackend) Set(key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.m[key] = cp
	return nil
}

// Delete removes the value under key.
func (b *MemoryBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.m, key)
	return nil
}

// Len returns the number of stored keys.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.m)
}
