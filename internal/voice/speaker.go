// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"context"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Speaker plays text aloud.
type Speaker interface {
	// Speak stops any current playback and starts speaking text. onDone is
	// called once when playback ends or is stopped.
	Speak(text string, onDone func())

	// Stop ends playback. Safe to call when idle.
	Stop()

	// IsSpeaking reports whether playback is in progress.
	IsSpeaking() bool
}

// =============================================================================
// SILENT SPEAKER
// =============================================================================

// Silent is a Speaker that never makes a sound. Used when voice is disabled.
type Silent struct{}

// Speak calls onDone immediately.
func (Silent) Speak(_ string, onDone func()) {
	if onDone != nil {
		onDone()
	}
}

// Stop does nothing.
func (Silent) Stop() {}

// IsSpeaking always returns false.
func (Silent) IsSpeaking() bool { return false }

// =============================================================================
// COMMAND SPEAKER
// =============================================================================

// CommandSpeaker runs a text-to-speech program, passing the text as the
// final argument.
type CommandSpeaker struct {
	command []string
	logger  zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	onDone   func()
	speaking bool
}

// NewCommandSpeaker creates a speaker for the given command line.
func NewCommandSpeaker(command []string, logger zerolog.Logger) *CommandSpeaker {
	return &CommandSpeaker{
		command: append([]string(nil), command...),
		logger:  logger.With().Str("component", "speaker").Logger(),
	}
}

// Available reports whether the configured program can be found.
func (s *CommandSpeaker) Available() bool {
	if len(s.command) == 0 {
		return false
	}
	_, err := exec.LookPath(s.command[0])
	return err == nil
}

// Speak implements Speaker.
func (s *CommandSpeaker) Speak(text string, onDone func()) {
	s.Stop()

	if len(s.command) == 0 {
		if onDone != nil {
			onDone()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	args := append(append([]string(nil), s.command[1:]...), text)
	cmd := exec.CommandContext(ctx, s.command[0], args...)

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.onDone = onDone
	s.speaking = true
	s.mu.Unlock()

	if err := cmd.Start(); err != nil {
		s.logger.Warn().Err(err).Str("command", s.command[0]).Msg("failed to start speech")
		s.finish(gen)
		return
	}

	go func() {
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			s.logger.Debug().Err(err).Msg("speech command exited with error")
		}
		s.finish(gen)
	}()
}

// finish ends playback generation gen; later generations are untouched.
func (s *CommandSpeaker) finish(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || !s.speaking {
		s.mu.Unlock()
		return
	}
	cancel, cb := s.cancel, s.onDone
	s.cancel, s.onDone, s.speaking = nil, nil, false
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cb != nil {
		cb()
	}
}

// Stop implements Speaker.
func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.finish(gen)
}

// IsSpeaking implements Speaker.
func (s *CommandSpeaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}
