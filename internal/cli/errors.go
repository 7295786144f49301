// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/sessions"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates any other failure
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates an unreadable or invalid configuration
	ExitConfigError = 3
	// ExitNotFoundError indicates a missing conversation or session
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Command string
	Message string
}

func (e *UsageError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Message)
	}
	return e.Message
}

// CommandError wraps a failure with the command and action that hit it.
type CommandError struct {
	Command string // e.g. "sessions"
	Action  string // e.g. "clear"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var invalid config.ValidateErrors
	switch {
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.As(err, &invalid), errors.Is(err, errConfig):
		return ExitConfigError
	case errors.Is(err, history.ErrConversationNotFound), errors.Is(err, sessions.ErrSessionNotFound):
		return ExitNotFoundError
	default:
		return ExitGeneralError
	}
}

// errConfig marks configuration load failures.
var errConfig = errors.New("configuration error")

func configError(err error) error {
	return fmt.Errorf("%w: %w", errConfig, err)
}
