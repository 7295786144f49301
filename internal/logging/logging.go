// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the zerolog logger shared by every pocket
// component.
//
// The full-screen UI owns stdout, so the default sink is a log file in the
// data directory. REPL and one-shot commands can log to stderr instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where and how much the logger writes.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...).
	Level string

	// File is the log file path. Empty means Writer (or stderr) is used.
	File string

	// Writer overrides File when set. Mostly for tests.
	Writer io.Writer

	// Console renders human-readable lines instead of JSON.
	Console bool
}

// New builds a logger from opts. The returned closer releases the log file
// and is safe to call when no file was opened.
func New(opts Options) (zerolog.Logger, func() error, error) {
	out, closer, err := openSink(opts)
	if err != nil {
		return zerolog.Nop(), noopClose, err
	}

	if opts.Console {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.File != "",
		}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("app", "pocket").
		Logger().
		Level(ParseLevel(opts.Level))

	return logger, closer, nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(raw string) zerolog.Level {
	if strings.TrimSpace(raw) == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func openSink(opts Options) (io.Writer, func() error, error) {
	if opts.Writer != nil {
		return opts.Writer, noopClose, nil
	}
	if opts.File == "" {
		return os.Stderr, noopClose, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, f.Close, nil
}

func noopClose() error { return nil }
