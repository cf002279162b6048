// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
	"github.com/aetheris-rag/aetheris-tui/internal/auth"
	"github.com/aetheris-rag/aetheris-tui/internal/chat"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/history"
	"github.com/aetheris-rag/aetheris-tui/internal/session"
	"github.com/aetheris-rag/aetheris-tui/internal/statestore"
	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// =============================================================================
// RUNTIME WIRING
// =============================================================================

// Runtime is the wired client stack shared by the CLI handlers and the
// TUI entrypoint.
type Runtime struct {
	Config     *config.Config
	Client     *api.Client
	Auth       *auth.Service
	Session    *session.Manager
	Chat       *chat.Service
	Controller *chat.Controller
	History    *history.Store // nil when disabled
}

// BootstrapOption adjusts runtime construction.
type BootstrapOption func(*bootstrapOptions)

type bootstrapOptions struct {
	notifier chat.Notifier
}

// WithNotifier routes controller notices somewhere other than the log.
func WithNotifier(n chat.Notifier) BootstrapOption {
	return func(o *bootstrapOptions) { o.notifier = n }
}

// Bootstrap builds the full client stack from the global configuration:
// storage backend (encrypted when configured), API client with bearer
// injection, session manager, chat controller and the query log.
func Bootstrap(opts ...BootstrapOption) (*Runtime, error) {
	var bo bootstrapOptions
	for _, opt := range opts {
		opt(&bo)
	}

	cfg := config.Global()

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory: %w", err)
	}

	var backend storage.Backend
	fileBackend, err := storage.NewFileBackend(filepath.Join(dataDir, "state"))
	if err != nil {
		return nil, fmt.Errorf("failed to open state storage: %w", err)
	}
	backend = fileBackend
	if cfg.Storage.EncryptToken {
		encrypted, err := storage.NewEncryptedBackend(fileBackend, filepath.Join(dataDir, "state.key"))
		if err != nil {
			return nil, fmt.Errorf("failed to open encrypted storage: %w", err)
		}
		backend = encrypted
	}

	client := api.NewClient(api.Config{BaseURL: cfg.Server.BaseURL, Timeout: cfg.Server.Timeout()})
	authSvc := auth.NewService(client)
	mgr := session.NewManager(authSvc, backend)

	// The client reads the token live so login/logout need no rewiring.
	client.SetTokenSource(mgr.Token)
	client.SetUnauthorizedHook(func() { mgr.Logout() })

	var hist *history.Store
	if cfg.History.Enabled {
		histPath, err := cfg.HistoryPath()
		if err == nil {
			hist, err = history.Open(histPath,
				history.WithUser(mgr.Username),
				history.WithMaxEntries(cfg.History.MaxEntries))
		}
		if err != nil {
			// A broken query log must not block asking questions.
			log.Printf("cli: history disabled: %v", err)
			hist = nil
		}
	}

	chatSvc := chat.NewService(client)
	ctrlOpts := []chat.ControllerOption{
		chat.WithLimiter(rate.NewLimiter(rate.Every(time.Duration(cfg.Chat.PaceSecs)*time.Second), cfg.Chat.PaceBurst)),
		chat.WithStore(statestore.New[chat.QueryState](backend, storage.KeyChatState,
			statestore.WithTTL[chat.QueryState](cfg.State.TTL()),
			statestore.WithMaxBytes[chat.QueryState](cfg.State.MaxBytes))),
	}
	if hist != nil {
		ctrlOpts = append(ctrlOpts, chat.WithHistory(hist))
	}
	if bo.notifier != nil {
		ctrlOpts = append(ctrlOpts, chat.WithNotifier(bo.notifier))
	}
	controller := chat.NewController(chatSvc, mgr, backend, ctrlOpts...)

	return &Runtime{
		Config:     cfg,
		Client:     client,
		Auth:       authSvc,
		Session:    mgr,
		Chat:       chatSvc,
		Controller: controller,
		History:    hist,
	}, nil
}

// Close releases runtime resources.
func (r *Runtime) Close() {
	if r.History != nil {
		r.History.Close()
	}
}

// =============================================================================
// TERMINAL HELPERS
// =============================================================================

// IsStdinTTY reports whether stdin is attached to a terminal.
func IsStdinTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY reports whether stdout is attached to a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// readPassword prompts for a password without echo.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pass), nil
}
