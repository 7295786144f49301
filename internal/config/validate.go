// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
)

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
//
// The endpoint URL and the credential are deliberately not checked here: a
// missing key or malformed endpoint is a recoverable condition that the
// completion client reports as an ordinary reply.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Completion.MaxTokens < 1 || c.Completion.MaxTokens > 8192 {
		errs = append(errs, ValidationError{
			Field:   "completion.max_tokens",
			Message: fmt.Sprintf("must be between 1 and 8192, got %d", c.Completion.MaxTokens),
		})
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "completion.temperature",
			Message: fmt.Sprintf("must be between 0 and 2, got %g", c.Completion.Temperature),
		})
	}
	if c.Completion.ContextTurns < 1 || c.Completion.ContextTurns > 100 {
		errs = append(errs, ValidationError{
			Field:   "completion.context_turns",
			Message: fmt.Sprintf("must be between 1 and 100, got %d", c.Completion.ContextTurns),
		})
	}
	if c.Completion.TimeoutSecs < 1 || c.Completion.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "completion.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Completion.TimeoutSecs),
		})
	}
	if c.Completion.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{
			Field:   "completion.requests_per_minute",
			Message: "must not be negative",
		})
	}

	if c.Reveal.TickMs < 1 || c.Reveal.TickMs > 1000 {
		errs = append(errs, ValidationError{
			Field:   "reveal.tick_ms",
			Message: fmt.Sprintf("must be between 1 and 1000, got %d", c.Reveal.TickMs),
		})
	}

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
