// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces editor save bursts into one reload.
const watchDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when the config file changes on
// disk and hands the fresh copy to a callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	logf     func(format string, args ...any)

	mu      sync.Mutex
	pending bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewWatcher creates a watcher for the default TOML config path. The
// callback runs on the watcher goroutine after each successful reload.
func NewWatcher(onChange func(*Config)) (*Watcher, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return nil, err
	}
	return NewWatcherForPath(path, onChange)
}

// NewWatcherForPath creates a watcher for an explicit config file.
func NewWatcherForPath(path string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a file-level watch.
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		path:     path,
		onChange: onChange,
		logf:     func(string, ...any) {},
		ctx:      ctx,
		cancel:   cancel,
	}
	go w.processEvents()
	return w, nil
}

// SetLogf routes watcher diagnostics to a logger.
func (w *Watcher) SetLogf(logf func(format string, args ...any)) {
	w.mu.Lock()
	w.logf = logf
	w.mu.Unlock()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			logf := w.logf
			w.mu.Unlock()
			logf("config: watch error: %v", err)
		}
	}
}

// scheduleReload debounces a burst of events into a single reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	if w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = true
	w.mu.Unlock()

	go func() {
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(watchDebounce):
		}

		w.mu.Lock()
		w.pending = false
		logf := w.logf
		w.mu.Unlock()

		cfg, err := LoadFromPath(w.path)
		if err != nil {
			logf("config: reload skipped: %v", err)
			return
		}
		SetGlobal(cfg)
		if w.onChange != nil {
			w.onChange(cfg)
		}
	}()
}
