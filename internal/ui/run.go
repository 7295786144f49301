// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/ui/styles"
)

// Run starts the full-screen interface and blocks until the user quits.
// The finished part of the chat is archived as a session on exit.
func Run(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, a, styles.NewTheme())

	if a.Config.Storage.WatchHistory {
		go func() {
			if err := history.Watch(ctx, a.History.Path(), history.DefaultDebounce, m.NotifyHistoryChanged); err != nil {
				a.Logger.Warn().Err(err).Msg("history watcher stopped")
			}
		}()
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if a.Config.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	final, err := tea.NewProgram(m, opts...).Run()
	if fm, ok := final.(Model); ok {
		a.Archive(fm.Orchestrator())
	}
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("run interface: %w", err)
	}
	return nil
}
