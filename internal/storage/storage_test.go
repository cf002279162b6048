// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

// =============================================================================
// FILE BACKEND TESTS
// =============================================================================

func TestFileBackend_RoundTrip(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	if _, ok, err := backend.Get(KeyToken); err != nil || ok {
		t.Fatalf("Get on empty backend = ok=%v err=%v, want absent", ok, err)
	}

	if err := backend.Set(KeyToken, []byte("eyJhbGci.token")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, ok, err := backend.Get(KeyToken)
	if err != nil || !ok {
		t.Fatalf("Get after Set = ok=%v err=%v", ok, err)
	}
	if string(data) != "eyJhbGci.token" {
		t.Errorf("Get = %q, want stored token", data)
	}

	if err := backend.Delete(KeyToken); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := backend.Get(KeyToken); ok {
		t.Error("key still present after Delete")
	}

	// Delete of an absent key is not an error
	if err := backend.Delete(KeyToken); err != nil {
		t.Errorf("Delete of absent key = %v, want nil", err)
	}
}

func TestFileBackend_RejectsUnsafeKeys(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend failed: %v", err)
	}

	for _, key := range []string{"", "../escape", "a/b", `a\b`, "dotted.key"} {
		if err := backend.Set(key, []byte("x")); err == nil {
			t.Errorf("Set(%q) succeeded, want error", key)
		}
	}
}

// =============================================================================
// MEMORY BACKEND TESTS
// =============================================================================

func TestMemoryBackend_IsolatesCallers(t *testing.T) {
	backend := NewMemoryBackend()
	original := []byte("original")
	if err := backend.Set("k", original); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Mutating the caller's slice must not affect the stored value
	original[0] = 'X'
	data, ok, _ := backend.Get("k")
	if !ok || string(data) != "original" {
		t.Errorf("stored value mutated through caller slice: %q", data)
	}

	// Mutating the returned slice must not affect the stored value
	data[0] = 'Y'
	data2, _, _ := backend.Get("k")
	if string(data2) != "original" {
		t.Errorf("stored value mutated through returned slice: %q", data2)
	}
}

// =============================================================================
// ENCRYPTED BACKEND TESTS
// =============================================================================

func TestEncryptedBackend_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	inner := NewMemoryBackend()
	backend, err := NewEncryptedBackend(inner, filepath.Join(dir, "secret"))
	if err != nil {
		t.Fatalf("NewEncryptedBackend failed: %v", err)
	}

	plain := []byte("bearer-token-value")
	if err := backend.Set(KeyToken, plain); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Ciphertext at rest must not contain the plaintext
	raw, ok, _ := inner.Get(KeyToken)
	if !ok {
		t.Fatal("inner backend has no value")
	}
	if bytes.Contains(raw, plain) {
		t.Error("plaintext visible in stored blob")
	}

	got, ok, err := backend.Get(KeyToken)
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(got, plain) {
		t.Errorf("decrypted value = %q, want %q", got, plain)
	}
}

func TestEncryptedBackend_SecretPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret")
	inner := NewMemoryBackend()

	first, err := NewEncryptedBackend(inner, secretPath)
	if err != nil {
		t.Fatalf("first NewEncryptedBackend failed: %v", err)
	}
	if err := first.Set(KeyToken, []byte("tok")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A second instance over the same secret must decrypt the same data
	second, err := NewEncryptedBackend(inner, secretPath)
	if err != nil {
		t.Fatalf("second NewEncryptedBackend failed: %v", err)
	}
	got, ok, err := second.Get(KeyToken)
	if err != nil || !ok || string(got) != "tok" {
		t.Errorf("second instance Get = %q ok=%v err=%v", got, ok, err)
	}
}

func TestEncryptedBackend_TamperDetection(t *testing.T) {
	dir := t.TempDir()
	inner := NewMemoryBackend()
	backend, err := NewEncryptedBackend(inner, filepath.Join(dir, "secret"))
	if err != nil {
		t.Fatalf("NewEncryptedBackend failed: %v", err)
	}
	if err := backend.Set(KeyToken, []byte("tok")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	raw, _, _ := inner.Get(KeyToken)
	raw[len(raw)-1] ^= 0xFF
	if err := inner.Set(KeyToken, raw); err != nil {
		t.Fatalf("tamper Set failed: %v", err)
	}

	if _, _, err := backend.Get(KeyToken); err == nil {
		t.Error("Get of tampered value succeeded, want error")
	}
}
