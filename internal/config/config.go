// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for pocket.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/jeranaias/pocket-tui/internal/util"
)

// BuildAPIKey is the completion API credential baked in at build time:
//
//	go build -ldflags "-X github.com/jeranaias/pocket-tui/internal/config.BuildAPIKey=hf_..."
var BuildAPIKey = ""

// DefaultSystemPrompt is the persona instruction injected at the head of
// every request. It is never stored in the conversation context.
const DefaultSystemPrompt = "You are a licensed mental health therapist trained in compassionate listening " +
	"and suicide prevention. Be kind, professional, and emotionally supportive. Do not repeat the same " +
	"introductory phrases like “I'm sorry you're feeling this way.” Avoid redundancy and keep " +
	"responses clear, short, and contextually empathetic."

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete pocket configuration.
type Config struct {
	// General settings
	Version string `toml:"version" json:"version"`

	// Remote completion endpoint
	Completion CompletionConfig `toml:"completion" json:"completion"`

	// Typewriter reveal
	Reveal RevealConfig `toml:"reveal" json:"reveal"`

	// Durable stores
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Speech collaborators
	Voice VoiceConfig `toml:"voice" json:"voice"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`

	// APIKey is the bearer credential for the completion endpoint.
	// SECURITY: resolved at startup, never persisted.
	APIKey string `toml:"-" json:"-" env:"HF_KEY"`
}

// CompletionConfig contains the remote completion endpoint configuration.
type CompletionConfig struct {
	// Endpoint is the full chat-completions URL
	Endpoint string `toml:"endpoint" json:"endpoint" env:"POCKET_ENDPOINT"`
	// Model is the model identifier sent with every request
	Model string `toml:"model" json:"model" env:"POCKET_MODEL"`
	// MaxTokens bounds the reply length
	MaxTokens int `toml:"max_tokens" json:"max_tokens" env:"POCKET_MAX_TOKENS"`
	// Temperature is kept low for consistent replies
	Temperature float64 `toml:"temperature" json:"temperature" env:"POCKET_TEMPERATURE"`
	// ContextTurns is the rolling window size (most recent turns sent)
	ContextTurns int `toml:"context_turns" json:"context_turns" env:"POCKET_CONTEXT_TURNS"`
	// TimeoutSecs is the per-request timeout
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"POCKET_TIMEOUT_SECS"`
	// RequestsPerMinute paces outgoing requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute" env:"POCKET_REQUESTS_PER_MINUTE"`
	// SystemPrompt overrides the built-in persona instruction
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
}

// Timeout returns the request timeout as a duration.
func (c CompletionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// RevealConfig controls the typewriter animation.
type RevealConfig struct {
	// TickMs is the delay between revealed characters
	TickMs int `toml:"tick_ms" json:"tick_ms" env:"POCKET_REVEAL_TICK_MS"`
}

// Interval returns the tick interval as a duration.
func (c RevealConfig) Interval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// StorageConfig contains durable store locations.
// Relative file names are resolved against DataDir.
type StorageConfig struct {
	// DataDir is the root for all pocket data (default: ~/.pocket)
	DataDir string `toml:"data_dir" json:"data_dir" env:"POCKET_DATA_DIR"`
	// HistoryFile holds the committed conversation log
	HistoryFile string `toml:"history_file" json:"history_file"`
	// SessionDB is the SQLite key-value session cache
	SessionDB string `toml:"session_db" json:"session_db"`
	// WatchHistory reloads history when another process writes it
	WatchHistory bool `toml:"watch_history" json:"watch_history"`
}

// VoiceConfig contains speech collaborator configuration.
type VoiceConfig struct {
	// Enabled turns spoken playback on
	Enabled bool `toml:"enabled" json:"enabled" env:"POCKET_VOICE"`
	// SpeakCommand is the TTS program; the text is passed as the last argument
	SpeakCommand []string `toml:"speak_command" json:"speak_command"`
	// ListenCommand is the STT program; each stdout line is a transcript update
	ListenCommand []string `toml:"listen_command" json:"listen_command"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, error
	Level string `toml:"level" json:"level" env:"POCKET_LOG_LEVEL"`
	// File is the log file (relative to DataDir unless absolute)
	File string `toml:"file" json:"file" env:"POCKET_LOG_FILE"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Markdown renders assistant replies with glamour once revealed
	Markdown bool `toml:"markdown" json:"markdown"`
	// AltScreen runs the TUI in the alternate screen buffer
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Completion: CompletionConfig{
			Endpoint:          "https://router.huggingface.co/fireworks-ai/inference/v1/chat/completions",
			Model:             "accounts/fireworks/models/llama-v3p1-8b-instruct",
			MaxTokens:         200,
			Temperature:       0.5, // less creative = more consistent
			ContextTurns:      6,
			TimeoutSecs:       60,
			RequestsPerMinute: 0,
			SystemPrompt:      DefaultSystemPrompt,
		},

		Reveal: RevealConfig{
			TickMs: 30,
		},

		Storage: StorageConfig{
			DataDir:      "",
			HistoryFile:  "conversations.json",
			SessionDB:    "sessions.db",
			WatchHistory: true,
		},

		Voice: VoiceConfig{
			Enabled:       true,
			SpeakCommand:  defaultSpeakCommand(),
			ListenCommand: nil,
		},

		Log: LogConfig{
			Level: "info",
			File:  "pocket.log",
		},

		UI: UIConfig{
			Markdown:  true,
			AltScreen: true,
		},

		APIKey: BuildAPIKey,
	}
}

// defaultSpeakCommand picks a TTS program likely to exist on this platform.
func defaultSpeakCommand() []string {
	if _, err := os.Stat("/usr/bin/say"); err == nil {
		return []string{"say", "-r", "180"}
	}
	return []string{"espeak", "-s", "160"}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the pocket data/config directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".pocket"), nil
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

// DataDir returns the resolved data directory.
func (c *Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir)
	}
	dir, err := ConfigDir()
	if err != nil {
		return ".pocket"
	}
	return dir
}

// HistoryPath returns the resolved conversation history file path.
func (c *Config) HistoryPath() string {
	return c.resolve(c.Storage.HistoryFile)
}

// SessionDBPath returns the resolved session cache database path.
func (c *Config) SessionDBPath() string {
	return c.resolve(c.Storage.SessionDB)
}

// LogPath returns the resolved log file path, or "" when logging to stderr.
func (c *Config) LogPath() string {
	if c.Log.File == "" || c.Log.File == "-" {
		return ""
	}
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(name string) string {
	name = expandHome(name)
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir(), name)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys missing from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// finish applies environment overrides, defaults and validation.
func (c *Config) finish() error {
	LoadDotEnv(c.DataDir())
	if err := c.ApplyEnvOverrides(); err != nil {
		return err
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// LoadDotEnv loads .env files from the working directory and dataDir into
// the process environment. Variables already set are left untouched.
func LoadDotEnv(dataDir string) {
	paths := []string{".env"}
	if dataDir != "" {
		paths = append(paths, filepath.Join(dataDir, ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", path, err)
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HF_KEY: completion API credential
//   - POCKET_ENDPOINT, POCKET_MODEL, POCKET_MAX_TOKENS, POCKET_TEMPERATURE
//   - POCKET_CONTEXT_TURNS, POCKET_TIMEOUT_SECS, POCKET_REQUESTS_PER_MINUTE
//   - POCKET_REVEAL_TICK_MS
//   - POCKET_DATA_DIR
//   - POCKET_VOICE: "true"/"false"
//   - POCKET_LOG_LEVEL, POCKET_LOG_FILE
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	return nil
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	// Completion
	if c.Completion.Model == "" {
		c.Completion.Model = defaults.Completion.Model
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = defaults.Completion.MaxTokens
	}
	if c.Completion.ContextTurns == 0 {
		c.Completion.ContextTurns = defaults.Completion.ContextTurns
	}
	if c.Completion.TimeoutSecs == 0 {
		c.Completion.TimeoutSecs = defaults.Completion.TimeoutSecs
	}
	if strings.TrimSpace(c.Completion.SystemPrompt) == "" {
		c.Completion.SystemPrompt = defaults.Completion.SystemPrompt
	}

	// Reveal
	if c.Reveal.TickMs == 0 {
		c.Reveal.TickMs = defaults.Reveal.TickMs
	}

	// Storage
	if c.Storage.HistoryFile == "" {
		c.Storage.HistoryFile = defaults.Storage.HistoryFile
	}
	if c.Storage.SessionDB == "" {
		c.Storage.SessionDB = defaults.Storage.SessionDB
	}

	// Voice
	if len(c.Voice.SpeakCommand) == 0 {
		c.Voice.SpeakCommand = defaults.Voice.SpeakCommand
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// The API key is never written.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# pocket configuration file\n")
	sb.WriteString("# The API key is read from HF_KEY (or .env), never from this file.\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// String renders the configuration as TOML with the API key redacted.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	key := "[not set]"
	if c.APIKey != "" {
		key = fmt.Sprintf("[REDACTED, length=%d]", len(c.APIKey))
	}
	sb.WriteString("\n# api_key = " + key + "\n")
	return sb.String()
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Voice.SpeakCommand = append([]string(nil), c.Voice.SpeakCommand...)
	out.Voice.ListenCommand = append([]string(nil), c.Voice.ListenCommand...)
	return &out
}
