// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the client's authentication state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
	"github.com/aetheris-rag/aetheris-tui/internal/auth"
	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// User-facing fallbacks when the service supplies no detail.
var (
	// ErrBlankCredentials rejects a login attempt before any network call.
	ErrBlankCredentials = errors.New("email and password are required")

	// ErrLoginFailed is the generic login failure message.
	ErrLoginFailed = errors.New("login failed, check your email and password")

	// ErrRegistrationFailed is the generic registration failure message.
	ErrRegistrationFailed = errors.New("registration failed, please try again later")
)

// State is the session's position in the auth state machine.
type State int

const (
	// Unauthenticated: no usable token.
	Unauthenticated State = iota
	// Validating: token present, profile unknown, current-user check in flight.
	Validating
	// Authenticated: token and profile both present.
	Authenticated
)

// String returns the state name for status output.
func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// IdentityService is the slice of the identity collaborator the manager
// needs. Satisfied by *auth.Service.
type IdentityService interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.UserInfo, error)
	CurrentUser(ctx context.Context) (*auth.UserInfo, error)
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager tracks the authentication session: bearer token, profile, and
// the in-flight validation flag. All methods are safe for concurrent use.
type Manager struct {
	identity IdentityService
	store    storage.Backend
	logf     func(format string, args ...any)

	mu         sync.Mutex
	token      string
	profile    *auth.UserInfo
	validating bool
	done       chan struct{} // non-nil while validating; closed on completion
}

// NewManager creates a session manager over the given identity service
// and durable storage backend.
func NewManager(identity IdentityService, store storage.Backend) *Manager {
	return &Manager{
		identity: identity,
		store:    store,
		logf:     log.Printf,
	}
}

// SetLogf overrides the logger for absorbed storage failures.
func (m *Manager) SetLogf(logf func(format string, args ...any)) {
	m.logf = logf
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Token returns the current bearer token, or "" when unauthenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Profile returns the current user profile, or nil.
func (m *Manager) Profile() *auth.UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// IsLoggedIn reports whether both token and profile are present.
func (m *Manager) IsLoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && m.profile != nil
}

// Username returns the logged-in user's name, or "".
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return ""
	}
	return m.profile.Username
}

// Email returns the logged-in user's email, or "".
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return ""
	}
	return m.profile.Email
}

// CurrentState returns the session's position in the state machine.
func (m *Manager) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.validating:
		return Validating
	case m.token != "" && m.profile != nil:
		return Authenticated
	default:
		return Unauthenticated
	}
}

// ValidationDone returns the shared completion channel of the in-flight
// validation, or ok=false when none is running. The channel is closed
// exactly once, after the terminal state is visible, so any number of
// waiters collapse onto the same completion.
func (m *Manager) ValidationDone() (<-chan struct{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.validating {
		return nil, false
	}
	return m.done, true
}

// =============================================================================
// INITIALIZE / VALIDATE
// =============================================================================

// Initialize restores a previously stored token and validates it. With
// no stored token the session simply stays unauthenticated.
func (m *Manager) Initialize(ctx context.Context) {
	data, ok, err := m.store.Get(storage.KeyToken)
	if err != nil {
		m.logf("session: failed to read stored token: %v", err)
		return
	}
	if !ok || len(data) == 0 {
		return
	}

	m.mu.Lock()
	m.token = string(data)
	m.mu.Unlock()

	m.Validate(ctx)
}

// Validate runs the current-user check for the held token.
//
// Single-flight: if a validation is already in flight, Validate returns
// false immediately without issuing a second network call; the in-flight
// one still fires the shared completion. With no token it likewise
// returns false. Otherwise it returns whether the token proved valid.
//
// Every path ends in a definite state: success stores the profile and
// persists it; any failure (auth or network) clears token and profile
// and their durable copies. Errors never escape.
func (m *Manager) Validate(ctx context.Context) bool {
	m.mu.Lock()
	if m.validating {
		m.mu.Unlock()
		return false
	}
	if m.token == "" {
		m.mu.Unlock()
		return false
	}
	m.validating = true
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	user, err := m.identity.CurrentUser(ctx)

	m.mu.Lock()
	var valid bool
	if err != nil {
		// Token invalid or service unreachable: revert to a clean
		// unauthenticated state either way.
		m.token = ""
		m.profile = nil
		m.deleteKey(storage.KeyToken)
		m.deleteKey(storage.KeyUserInfo)
	} else {
		m.profile = user
		m.persistProfile(user)
		valid = true
	}
	m.validating = false
	m.done = nil
	m.mu.Unlock()

	// Completion fires after the terminal state is visible to waiters.
	close(done)
	return valid
}

// =============================================================================
// LOGIN / REGISTER / LOGOUT
// =============================================================================

// Login authenticates with the identity service. On success the session
// becomes Authenticated directly; the login response already carries the
// profile so no Validating hop occurs. On failure the session state is
// left untouched and the returned error carries the server-supplied
// message when there is one.
func (m *Manager) Login(ctx context.Context, req auth.LoginRequest) error {
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		return ErrBlankCredentials
	}

	resp, err := m.identity.Login(ctx, req)
	if err != nil {
		if msg := api.ServerMessage(err); msg != "" {
			return errors.New(msg)
		}
		return ErrLoginFailed
	}

	m.mu.Lock()
	m.token = resp.Token
	m.profile = &resp.User
	m.setKey(storage.KeyToken, []byte(resp.Token))
	m.persistProfile(&resp.User)
	m.mu.Unlock()

	return nil
}

// Register creates an account. It is a stateless pass-through: the caller
// stays unauthenticated and logs in separately.
func (m *Manager) Register(ctx context.Context, req auth.RegisterRequest) (*auth.UserInfo, error) {
	user, err := m.identity.Register(ctx, req)
	if err != nil {
		if msg := api.ServerMessage(err); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, ErrRegistrationFailed
	}
	return user, nil
}

// Logout clears the session and every durable trace of it. Synchronous
// and idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.profile = nil
	m.deleteKey(storage.KeyToken)
	m.deleteKey(storage.KeyUserInfo)
	m.deleteKey(storage.KeyChatState)
}

// UpdateProfile replaces the profile wholesale and re-persists it. Used
// when another flow learns fresher profile data.
func (m *Manager) UpdateProfile(user *auth.UserInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = user
	m.persistProfile(user)
}

// =============================================================================
// DURABLE STORAGE (callers hold m.mu)
// =============================================================================

// Storage failures are absorbed: losing the cached copy degrades the next
// startup to a fresh validation, it must never fail the operation.

func (m *Manager) persistProfile(user *auth.UserInfo) {
	data, err := json.Marshal(user)
	if err != nil {
		m.logf("session: failed to encode profile: %v", err)
		return
	}
	m.setKey(storage.KeyUserInfo, data)
}

func (m *Manager) setKey(key string, data []byte) {
	if err := m.store.Set(key, data); err != nil {
		m.logf("session: failed to persist %q: %v", key, err)
	}
}

func (m *Manager) deleteKey(key string) {
	if err := m.store.Delete(key); err != nil {
		m.logf("session: failed to clear %q: %v", key, err)
	}
}
