// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for pocket.
//
// Supports TOML and JSON configuration files, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - CompletionConfig: Remote completion endpoint and model parameters
//   - StorageConfig: Where history and the session cache live
//   - VoiceConfig: Speech output/input commands
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (POCKET_*, HF_KEY), including a .env file
//   - ~/.pocket/config.toml (or the path given with --config)
//   - ~/.pocket/config.json
//   - Built-in defaults
//
// The API credential is never read from or written to the config file. It
// comes from the build (BuildAPIKey, set with -ldflags -X) or from HF_KEY.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := completion.NewClient(completion.OptionsFromConfig(cfg), logger)
package config
