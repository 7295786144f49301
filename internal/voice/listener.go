// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoListenCommand is returned by Start when no speech-to-text program
// is configured.
var ErrNoListenCommand = errors.New("no listen command configured")

// ErrAlreadyListening is returned by Start while a recording is running.
var ErrAlreadyListening = errors.New("already listening")

// Listener produces a live transcript of spoken input.
type Listener interface {
	// Start begins recording. The transcript is reset.
	Start(ctx context.Context) error

	// Stop ends recording. The last transcript stays readable.
	Stop()

	// Transcript returns the current transcript.
	Transcript() string

	// Listening reports whether a recording is running.
	Listening() bool

	// Updates delivers transcript changes. It is closed when a recording ends.
	Updates() <-chan string
}

// CommandListener runs a speech-to-text program. Each non-empty line it
// prints replaces the transcript.
type CommandListener struct {
	command []string
	logger  zerolog.Logger

	mu         sync.Mutex
	transcript string
	cancel     context.CancelFunc
	updates    chan string
	listening  bool
}

// NewCommandListener creates a listener for the given command line.
func NewCommandListener(command []string, logger zerolog.Logger) *CommandListener {
	return &CommandListener{
		command: append([]string(nil), command...),
		logger:  logger.With().Str("component", "listener").Logger(),
	}
}

// Start implements Listener.
func (l *CommandListener) Start(ctx context.Context) error {
	if len(l.command) == 0 {
		return ErrNoListenCommand
	}

	l.mu.Lock()
	if l.listening {
		l.mu.Unlock()
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, l.command[0], l.command[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		l.mu.Unlock()
		cancel()
		return fmt.Errorf("listen pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		l.mu.Unlock()
		cancel()
		return fmt.Errorf("start listen command: %w", err)
	}
	updates := make(chan string, 16)
	l.transcript = ""
	l.cancel = cancel
	l.updates = updates
	l.listening = true
	l.mu.Unlock()

	go func() {
		defer close(updates)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			l.mu.Lock()
			l.transcript = line
			l.mu.Unlock()
			select {
			case updates <- line:
			default:
				// Receiver is behind; Transcript() still has the latest text.
			}
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			l.logger.Debug().Err(err).Msg("listen command exited with error")
		}
		l.mu.Lock()
		l.listening = false
		l.cancel = nil
		l.mu.Unlock()
		cancel()
	}()
	return nil
}

// Stop implements Listener.
func (l *CommandListener) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Transcript implements Listener.
func (l *CommandListener) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transcript
}

// Listening implements Listener.
func (l *CommandListener) Listening() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.listening
}

// Updates implements Listener. Returns nil before the first Start.
func (l *CommandListener) Updates() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updates
}
