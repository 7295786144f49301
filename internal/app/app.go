// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app constructs pocket's services and owns their lifecycle.
//
// Every front end (TUI, REPL, one-shot ask) builds one App, creates its
// orchestrator from it, and closes it on exit. Nothing here is global.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/completion"
	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/logging"
	"github.com/jeranaias/pocket-tui/internal/sessions"
	"github.com/jeranaias/pocket-tui/internal/voice"
)

// Options selects how the App is built.
type Options struct {
	// ConfigPath overrides the default config file location.
	ConfigPath string

	// Model overrides completion.model.
	Model string

	// NoVoice disables spoken playback.
	NoVoice bool

	// Verbose logs at debug level to stderr instead of the log file.
	Verbose bool

	// Config skips loading and uses this configuration (tests).
	Config *config.Config
}

// App holds the constructed services.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Client   *completion.Client
	History  *history.Recorder
	Sessions *sessions.Store // nil when the cache could not be opened
	Speaker  voice.Speaker
	Listener voice.Listener // nil when no listen command is configured

	closeLog func() error
}

// New loads configuration and wires every service.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if opts.ConfigPath != "" {
			cfg, err = config.LoadFromPath(opts.ConfigPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.Model != "" {
		cfg.Completion.Model = opts.Model
	}
	if opts.NoVoice {
		cfg.Voice.Enabled = false
	}

	logOpts := logging.Options{Level: cfg.Log.Level, File: cfg.LogPath()}
	if opts.Verbose {
		logOpts = logging.Options{Level: "debug", Console: true}
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		closeLog: closeLog,
	}

	a.Client = completion.NewClient(completion.OptionsFromConfig(cfg), logger)
	if !a.Client.IsConfigured() {
		logger.Warn().Msg("HF_KEY is not set; replies will report a missing API key")
	}

	a.History = history.NewRecorder(cfg.HistoryPath(), logger)
	a.History.Load()

	// The session cache is optional; failure degrades to no archiving.
	if store, err := sessions.Open(cfg.SessionDBPath(), logger); err != nil {
		logger.Error().Err(err).Str("path", cfg.SessionDBPath()).Msg("session cache unavailable")
	} else {
		a.Sessions = store
	}

	a.Speaker = voice.Silent{}
	if cfg.Voice.Enabled {
		speaker := voice.NewCommandSpeaker(cfg.Voice.SpeakCommand, logger)
		if speaker.Available() {
			a.Speaker = speaker
		} else {
			logger.Info().Strs("command", cfg.Voice.SpeakCommand).Msg("speech program not found, voice output off")
		}
	}
	if len(cfg.Voice.ListenCommand) > 0 {
		a.Listener = voice.NewCommandListener(cfg.Voice.ListenCommand, logger)
	}

	logger.Info().
		Str("model", cfg.Completion.Model).
		Int("history", a.History.Len()).
		Bool("voice", cfg.Voice.Enabled).
		Msg("pocket started")
	return a, nil
}

// NewOrchestrator creates a chat orchestrator bound to this App's services.
func (a *App) NewOrchestrator(ctx context.Context) *chat.Orchestrator {
	return chat.New(chat.Options{
		Completer: a.Client,
		Recorder:  a.History,
		Speaker:   a.Speaker,
		Logger:    a.Logger,
		Context:   ctx,
		Interval:  a.Config.Reveal.Interval(),
	})
}

// Archive stores the finished part of the chat as a session. Nothing is
// stored for an empty chat. Failures are logged.
func (a *App) Archive(o *chat.Orchestrator) {
	msgs := FinishedMessages(o)
	if len(msgs) == 0 || a.Sessions == nil {
		return
	}

	now := time.Now()
	out := make([]sessions.Message, 0, len(msgs))
	for _, m := range msgs {
		role := sessions.RoleAssistant
		if m.IsUser {
			role = sessions.RoleUser
		}
		out = append(out, sessions.Message{ID: m.ID, Role: role, Content: m.Content, Timestamp: m.Timestamp})
	}

	session := sessions.NewSession(history.TitleFor(now), out, now)
	if err := a.Sessions.Add(session); err != nil {
		a.Logger.Error().Err(err).Msg("failed to archive session")
		return
	}
	a.Logger.Debug().Str("id", session.ID).Int("messages", len(out)).Msg("session archived")
}

// FinishedMessages returns the message list without an exchange that is
// still in flight.
func FinishedMessages(o *chat.Orchestrator) []chat.Message {
	msgs := o.Messages()
	switch o.State() {
	case chat.AwaitingCompletion:
		msgs = msgs[:len(msgs)-1]
	case chat.Revealing:
		msgs = msgs[:len(msgs)-2]
	}
	return msgs
}

// Reset archives the chat, clears it and starts a fresh completion context.
func (a *App) Reset(o *chat.Orchestrator) {
	a.Archive(o)
	o.Clear()
	a.Client.Reset()
}

// Close stops speech and releases the session cache and log file.
func (a *App) Close() error {
	var errs []error
	if a.Speaker != nil {
		a.Speaker.Stop()
	}
	if a.Listener != nil {
		a.Listener.Stop()
	}
	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session cache: %w", err))
		}
	}
	if a.closeLog != nil {
		if err := a.closeLog(); err != nil {
			errs = append(errs, fmt.Errorf("close log: %w", err))
		}
	}
	return errors.Join(errs...)
}
