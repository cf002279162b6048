// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides keyed durable storage for the aetheris client.
package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/aetheris-rag/aetheris-tui/internal/util"
)

// Encryption parameters for at-rest protection of stored values.
const (
	// KeySize is the AES-256 key size in bytes.
	KeySize = 32

	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = 12

	// SaltSize is the PBKDF2 salt size in bytes.
	SaltSize = 32

	// PBKDF2Iterations is the PBKDF2-SHA-256 iteration count.
	PBKDF2Iterations = 600000

	// secretFileName holds the machine-local passphrase the value keys are
	// derived from. Generated on first use.
	secretFileName = "secret"
)

// ErrCorruptValue indicates a stored value could not be authenticated.
var ErrCorruptValue = errors.New("stored value corrupt or tampered")

// =============================================================================
// ENCRYPTED BACKEND
// =============================================================================

// EncryptedBackend wraps another Backend and encrypts every value at rest
// using AES-256-GCM with a PBKDF2-derived key.
//
// SECURITY: The bearer token is a long-lived credential; storing it in
// plaintext on a shared machine leaks the account. Each value carries its
// own random salt and nonce: salt(32) | nonce(12) | ciphertext.
type EncryptedBackend struct {
	inner      Backend
	passphrase []byte
}

// NewEncryptedBackend wraps inner with at-rest encryption. The passphrase
// is loaded from (or generated at) secretPath.
func NewEncryptedBackend(inner Backend, secretPath string) (*EncryptedBackend, error) {
	passphrase, err := loadOrCreateSecret(secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage secret: %w", err)
	}
	return &EncryptedBackend{inner: inner, passphrase: passphrase}, nil
}

// DefaultSecretPath returns the default secret location (~/.aetheris/secret).
func DefaultSecretPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".aetheris", secretFileName), nil
}

// loadOrCreateSecret reads the machine-local passphrase, generating a
// random one on first use.
func loadOrCreateSecret(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil && len(data) > 0 {
		return data, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	raw := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := []byte(hex.EncodeToString(raw))
	if err := util.AtomicWriteFile(path, secret, 0600); err != nil {
		return nil, err
	}
	return secret, nil
}

// deriveKey derives an encryption key from the passphrase and salt using
// PBKDF2-SHA-256 (NIST SP 800-132).
func (b *EncryptedBackend) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(b.passphrase, salt, PBKDF2Iterations, KeySize, sha256.New)
}

// Get reads and decrypts the value stored under key.
func (b *EncryptedBackend) Get(key string) ([]byte, bool, error) {
	blob, ok, err := b.inner.Get(key)
	if err != nil || !ok {
		return nil, ok, err
	}
	plain, err := b.decrypt(blob)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}

// Set encrypts and writes the value under key.
func (b *EncryptedBackend) Set(key string, data []byte) error {
	blob, err := b.encrypt(data)
	if err != nil {
		return err
	}
	return b.inner.Set(key, blob)
}

// Delete removes the value under key.
func (b *EncryptedBackend) Delete(key string) error {
	return b.inner.Delete(key)
}

func (b *EncryptedBackend) encrypt(plain []byte) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := newGCM(b.deriveKey(salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, SaltSize+NonceSize+len(plain)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, plain, nil)
	return blob, nil
}

func (b *EncryptedBackend) decrypt(blob []byte) ([]byte, error) {
	if len(blob) < SaltSize+NonceSize {
		return nil, ErrCorruptValue
	}
	salt := blob[:SaltSize]
	nonce := blob[SaltSize : SaltSize+NonceSize]
	ciphertext := blob[SaltSize+NonceSize:]

	gcm, err := newGCM(b.deriveKey(salt))
	if err != nil {
		return nil, err
	}

	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptValue, err)
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
