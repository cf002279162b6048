// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/aetheris-rag/aetheris-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete client configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	State   StateConfig   `toml:"state" json:"state"`
	History HistoryConfig `toml:"history" json:"history"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// ServerConfig contains API endpoint configuration.
type ServerConfig struct {
	// BaseURL is the API root, e.g. "http://127.0.0.1:8080/api".
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// Timeout returns the request timeout as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSecs) * time.Second
}

// StorageConfig contains local persistence configuration.
type StorageConfig struct {
	// Dir is the data directory (empty = ~/.aetheris).
	Dir string `toml:"dir" json:"dir"`
	// EncryptToken stores the session token encrypted at rest.
	EncryptToken bool `toml:"encrypt_token" json:"encrypt_token"`
}

// StateConfig bounds the persisted interaction state.
type StateConfig struct {
	// TTLHours is how long a persisted snapshot stays restorable.
	TTLHours int `toml:"ttl_hours" json:"ttl_hours"`
	// MaxBytes is the largest snapshot that will be written.
	MaxBytes int `toml:"max_bytes" json:"max_bytes"`
}

// TTL returns the snapshot lifetime as a duration.
func (s StateConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// HistoryConfig contains the local query log configuration.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path is the SQLite file (empty = <storage.dir>/history.db).
	Path       string `toml:"path" json:"path"`
	MaxEntries int    `toml:"max_entries" json:"max_entries"`
}

// ChatConfig contains question submission defaults.
type ChatConfig struct {
	// TopK is the default retrieval depth (0 = server default).
	TopK int `toml:"top_k" json:"top_k"`
	// PaceSecs is the minimum spacing between submissions.
	PaceSecs int `toml:"pace_secs" json:"pace_secs"`
	// PaceBurst is how many submissions may go out back to back.
	PaceBurst int `toml:"pace_burst" json:"pace_burst"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	// Theme is "auto", "dark", or "light".
	Theme string `toml:"theme" json:"theme"`
	// MarkdownStyle is the glamour style name for answer rendering.
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`
	// Mouse enables mouse support in the TUI.
	Mouse bool `toml:"mouse" json:"mouse"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			BaseURL:     "http://127.0.0.1:8080/api",
			TimeoutSecs: 10,
		},
		Storage: StorageConfig{
			Dir:          "",
			EncryptToken: true,
		},
		State: StateConfig{
			TTLHours: 24,
			MaxBytes: 4 * 1024 * 1024,
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 1000,
		},
		Chat: ChatConfig{
			TopK:      0,
			PaceSecs:  2,
			PaceBurst: 3,
		},
		UI: UIConfig{
			Theme:         "auto",
			MarkdownStyle: "auto",
			Mouse:         true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory (~/.aetheris).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aetheris"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// DataDir resolves the configured data directory, falling back to the
// config directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	return ConfigDir()
}

// HistoryPath resolves the query log path.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// ensureSecurePermissions fixes permissions on config files. The config
// may hold a private server URL; keep it owner-only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions: %w", err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s). Tries TOML first,
// then JSON, and falls back to defaults. Environment overrides are
// applied last, then validation clamps out-of-range values.
func Load() (*Config, error) {
	cfg := Default()

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				return nil, fmt.Errorf("failed to load TOML config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				return nil, fmt.Errorf("failed to load JSON config: %w", err)
			}
			return finishLoad(cfg)
		}
	}

	return finishLoad(cfg)
}

func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from an explicit path, deciding the
// format by extension.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = LoadTOML(cfg, path)
	case ".json":
		err = LoadJSON(cfg, path)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML location.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# aetheris configuration file")
	fmt.Fprintln(file, "# Edit with care; unknown keys are ignored.")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies AETHERIS_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("AETHERIS_SERVER_URL"); base != "" {
		c.Server.BaseURL = base
	}
	if timeout := os.Getenv("AETHERIS_TIMEOUT_SECS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			c.Server.TimeoutSecs = n
		}
	}
	if dir := os.Getenv("AETHERIS_DATA_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if encrypt := os.Getenv("AETHERIS_ENCRYPT_TOKEN"); encrypt != "" {
		c.Storage.EncryptToken = isTruthy(encrypt)
	}
	if history := os.Getenv("AETHERIS_HISTORY"); history != "" {
		c.History.Enabled = isTruthy(history)
	}
	if theme := os.Getenv("AETHERIS_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

func isTruthy(v string) bool {
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "on")
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validation bounds. Out-of-range numeric values are clamped rather
// than rejected so an edited config never locks the user out.
const (
	minTimeoutSecs = 1
	maxTimeoutSecs = 120
	minTTLHours    = 1
	maxTTLHours    = 24 * 7
	maxStateBytes  = 8 * 1024 * 1024
	maxTopK        = 20
)

// Validate checks the configuration, clamping numeric fields and
// rejecting values that cannot be made safe.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not an absolute URL", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme %q is not http(s)", u.Scheme)
	}

	c.Server.TimeoutSecs = clamp(c.Server.TimeoutSecs, minTimeoutSecs, maxTimeoutSecs)
	c.State.TTLHours = clamp(c.State.TTLHours, minTTLHours, maxTTLHours)
	c.State.MaxBytes = clamp(c.State.MaxBytes, 1024, maxStateBytes)
	c.Chat.TopK = clamp(c.Chat.TopK, 0, maxTopK)
	if c.Chat.PaceSecs < 0 {
		c.Chat.PaceSecs = 0
	}
	if c.Chat.PaceBurst < 1 {
		c.Chat.PaceBurst = 1
	}
	if c.History.MaxEntries < 1 {
		c.History.MaxEntries = 1000
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		c.UI.Theme = "auto"
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance. Loads configuration
// on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.ApplyEnvOverrides()
			_ = cfg.Validate()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
