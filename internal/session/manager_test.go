// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
	"github.com/aetheris-rag/aetheris-tui/internal/auth"
	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// fakeIdentity is a controllable IdentityService.
type fakeIdentity struct {
	mu sync.Mutex

	loginResp *auth.LoginResponse
	loginErr  error

	registerResp *auth.UserInfo
	registerErr  error

	currentUserResp *auth.UserInfo
	currentUserErr  error

	currentUserCalls atomic.Int32
	block            chan struct{} // when non-nil, CurrentUser blocks until closed
}

func (f *fakeIdentity) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginResp, f.loginErr
}

func (f *fakeIdentity) Register(ctx context.Context, req auth.RegisterRequest) (*auth.UserInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerResp, f.registerErr
}

func (f *fakeIdentity) CurrentUser(ctx context.Context) (*auth.UserInfo, error) {
	f.currentUserCalls.Add(1)
	f.mu.Lock()
	block := f.block
	resp, err := f.currentUserResp, f.currentUserErr
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return resp, err
}

func testUser() *auth.UserInfo {
	return &auth.UserInfo{ID: 7, Username: "ada", Email: "ada@example.com"}
}

func quietManager(identity IdentityService, store storage.Backend) *Manager {
	m := NewManager(identity, store)
	m.SetLogf(func(string, ...any) {})
	return m
}

// =============================================================================
// INITIALIZE TESTS
// =============================================================================

func TestInitialize_NoStoredToken(t *testing.T) {
	identity := &fakeIdentity{}
	m := quietManager(identity, storage.NewMemoryBackend())

	m.Initialize(context.Background())

	assert.Equal(t, Unauthenticated, m.CurrentState())
	assert.Zero(t, identity.currentUserCalls.Load(), "no validation without a token")
}

func TestInitialize_ValidStoredToken(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.KeyToken, []byte("stored-token")))

	identity := &fakeIdentity{currentUserResp: testUser()}
	m := quietManager(identity, backend)

	m.Initialize(context.Background())

	assert.Equal(t, Authenticated, m.CurrentState())
	assert.Equal(t, "stored-token", m.Token())
	assert.Equal(t, "ada", m.Username())

	// Profile persisted for the next startup
	data, ok, _ := backend.Get(storage.KeyUserInfo)
	require.True(t, ok)
	var persisted auth.UserInfo
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, "ada", persisted.Username)
}

func TestInitialize_InvalidStoredToken(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.KeyToken, []byte("expired")))
	require.NoError(t, backend.Set(storage.KeyUserInfo, []byte(`{"username":"stale"}`)))

	identity := &fakeIdentity{
		currentUserErr: &api.APIError{Status: http.StatusUnauthorized, Path: "/auth/me"},
	}
	m := quietManager(identity, backend)

	m.Initialize(context.Background())

	assert.Equal(t, Unauthenticated, m.CurrentState())
	assert.Empty(t, m.Token())
	assert.Nil(t, m.Profile())

	// Durable copies cleared on failed validation
	_, ok, _ := backend.Get(storage.KeyToken)
	assert.False(t, ok)
	_, ok, _ = backend.Get(storage.KeyUserInfo)
	assert.False(t, ok)
}

// =============================================================================
// VALIDATE TESTS
// =============================================================================

func TestValidate_SingleFlight(t *testing.T) {
	backend := storage.NewMemoryBackend()
	block := make(chan struct{})
	identity := &fakeIdentity{currentUserResp: testUser(), block: block}
	m := quietManager(identity, backend)
	require.NoError(t, backend.Set(storage.KeyToken, []byte("tok")))

	// First flight: starts and blocks inside the network call
	first := make(chan bool, 1)
	go func() {
		m.Initialize(context.Background())
		first <- true
	}()

	// Wait until the flight is actually in progress
	require.Eventually(t, func() bool {
		_, validating := m.ValidationDone()
		return validating
	}, time.Second, time.Millisecond)

	// Concurrent callers join the in-flight validation: they return
	// false immediately and no second network call happens.
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() { results <- m.Validate(context.Background()) }()
	}
	for i := 0; i < 10; i++ {
		assert.False(t, <-results, "joining caller must not report success")
	}

	done, validating := m.ValidationDone()
	require.True(t, validating)

	close(block)
	<-first
	<-done

	assert.Equal(t, int32(1), identity.currentUserCalls.Load(), "exactly one network validation")
	assert.Equal(t, Authenticated, m.CurrentState(), "all callers observe the same terminal state")
}

func TestValidate_CompletionFiresAfterTerminalState(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.KeyToken, []byte("tok")))
	block := make(chan struct{})
	identity := &fakeIdentity{currentUserResp: testUser(), block: block}
	m := quietManager(identity, backend)

	go m.Initialize(context.Background())
	require.Eventually(t, func() bool {
		_, validating := m.ValidationDone()
		return validating
	}, time.Second, time.Millisecond)

	done, _ := m.ValidationDone()
	close(block)
	<-done

	// By the time the completion fires, the state is final.
	assert.Equal(t, Authenticated, m.CurrentState())
	assert.True(t, m.IsLoggedIn())
}

func TestValidate_NetworkFailureRevertsToUnauthenticated(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.KeyToken, []byte("tok")))
	identity := &fakeIdentity{currentUserErr: api.ErrNetwork}
	m := quietManager(identity, backend)

	m.Initialize(context.Background())

	assert.Equal(t, Unauthenticated, m.CurrentState())
	_, ok, _ := backend.Get(storage.KeyToken)
	assert.False(t, ok, "token cleared after failed validation")
}

func TestValidate_NoToken(t *testing.T) {
	m := quietManager(&fakeIdentity{}, storage.NewMemoryBackend())
	assert.False(t, m.Validate(context.Background()))
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	backend := storage.NewMemoryBackend()
	identity := &fakeIdentity{
		loginResp: &auth.LoginResponse{Token: "fresh-token", User: *testUser()},
	}
	m := quietManager(identity, backend)

	err := m.Login(context.Background(), auth.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)

	// Authenticated directly, no Validating hop
	assert.Equal(t, Authenticated, m.CurrentState())
	assert.Zero(t, identity.currentUserCalls.Load())

	data, ok, _ := backend.Get(storage.KeyToken)
	require.True(t, ok)
	assert.Equal(t, "fresh-token", string(data))
}

func TestLogin_BlankCredentials(t *testing.T) {
	identity := &fakeIdentity{}
	m := quietManager(identity, storage.NewMemoryBackend())

	for _, req := range []auth.LoginRequest{
		{Email: "", Password: "pw"},
		{Email: "a@b.c", Password: ""},
		{Email: "   ", Password: "pw"},
	} {
		err := m.Login(context.Background(), req)
		assert.ErrorIs(t, err, ErrBlankCredentials)
	}
}

func TestLogin_ServerMessagePreferred(t *testing.T) {
	identity := &fakeIdentity{
		loginErr: &api.APIError{Status: http.StatusUnauthorized, Message: "邮箱或密码错误", Path: "/auth/login"},
	}
	m := quietManager(identity, storage.NewMemoryBackend())

	err := m.Login(context.Background(), auth.LoginRequest{Email: "a@b.c", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, "邮箱或密码错误", err.Error())
	assert.Equal(t, Unauthenticated, m.CurrentState(), "failed login must not mutate state")
}

func TestLogin_GenericFallback(t *testing.T) {
	identity := &fakeIdentity{loginErr: api.ErrNetwork}
	m := quietManager(identity, storage.NewMemoryBackend())

	err := m.Login(context.Background(), auth.LoginRequest{Email: "a@b.c", Password: "pw"})
	assert.ErrorIs(t, err, ErrLoginFailed)
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestRegister_PassThrough(t *testing.T) {
	identity := &fakeIdentity{registerResp: testUser()}
	m := quietManager(identity, storage.NewMemoryBackend())

	user, err := m.Register(context.Background(), auth.RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)
	assert.Equal(t, Unauthenticated, m.CurrentState(), "register must not authenticate")
}

func TestRegister_ConflictDetail(t *testing.T) {
	identity := &fakeIdentity{
		registerErr: &api.APIError{Status: http.StatusConflict, Message: "email already registered"},
	}
	m := quietManager(identity, storage.NewMemoryBackend())

	_, err := m.Register(context.Background(), auth.RegisterRequest{Username: "x", Email: "x@y.z", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "email already registered", err.Error())
}

// =============================================================================
// LOGOUT / UPDATE TESTS
// =============================================================================

func TestLogout_ClearsEverythingAndIsIdempotent(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(storage.KeyChatState, []byte(`{"payload":{}}`)))
	identity := &fakeIdentity{
		loginResp: &auth.LoginResponse{Token: "tok", User: *testUser()},
	}
	m := quietManager(identity, backend)
	require.NoError(t, m.Login(context.Background(), auth.LoginRequest{Email: "a@b.c", Password: "pw"}))

	m.Logout()
	m.Logout() // idempotent

	assert.Equal(t, Unauthenticated, m.CurrentState())
	assert.Equal(t, 0, backend.Len(), "logout clears token, profile, and session-scoped state")
}

func TestUpdateProfile_ReplacesAndPersists(t *testing.T) {
	backend := storage.NewMemoryBackend()
	identity := &fakeIdentity{
		loginResp: &auth.LoginResponse{Token: "tok", User: *testUser()},
	}
	m := quietManager(identity, backend)
	require.NoError(t, m.Login(context.Background(), auth.LoginRequest{Email: "a@b.c", Password: "pw"}))

	fresh := &auth.UserInfo{ID: 7, Username: "ada2", Email: "ada2@example.com"}
	m.UpdateProfile(fresh)

	assert.Equal(t, "ada2", m.Username())
	data, ok, _ := backend.Get(storage.KeyUserInfo)
	require.True(t, ok)
	var persisted auth.UserInfo
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, "ada2", persisted.Username)
}

// Many goroutines hammering every operation should trip nothing under -race.
func TestManager_ConcurrentAccess(t *testing.T) {
	backend := storage.NewMemoryBackend()
	identity := &fakeIdentity{
		currentUserResp: testUser(),
		loginResp:       &auth.LoginResponse{Token: "tok", User: *testUser()},
	}
	m := quietManager(identity, backend)
	require.NoError(t, backend.Set(storage.KeyToken, []byte("tok")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			m.Validate(context.Background())
		}()
		go func() {
			defer wg.Done()
			_ = m.IsLoggedIn()
			_ = m.CurrentState()
			_, _ = m.ValidationDone()
		}()
		go func() {
			defer wg.Done()
			_ = m.Token()
			_ = m.Username()
		}()
	}
	wg.Wait()
}
