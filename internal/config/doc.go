// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for the Aetheris client.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: API endpoint and timeout settings
//   - StateConfig: Persisted interaction-state limits
//   - HistoryConfig: Local query log settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AETHERIS_*)
//   - ~/.aetheris/config.toml
//   - ~/.aetheris/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	base := cfg.Server.BaseURL
//	ttl := cfg.State.TTL()
package config
