// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/export"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/voice"
)

// Layout rows outside the viewport: header, notice, input border, input, status.
const chromeHeight = 5

// exportDir is the data directory subfolder for exports.
const exportDir = "exports"

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(1, msg.Height-chromeHeight)
		m.input.Width = max(10, msg.Width-4)
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chat.CompletionMsg, chat.RevealTickMsg:
		cmd := m.orch.Update(msg)
		m.refresh()
		return m, cmd

	case chat.ExchangeDoneMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.orch.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case historyChangedMsg:
		m.app.History.Load()
		m.clampCursor()
		if m.screen == ScreenHistory {
			m.refresh()
		}
		return m, m.waitForHistory()

	case transcriptMsg:
		return m.handleTranscript(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenHistory:
		return m.handleHistoryKey(msg)
	case ScreenHistoryDetail:
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.History):
		m.screen = ScreenHistory
		m.historyCursor = 0
		m.notice = ""
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Record):
		return m.toggleRecording()

	case key.Matches(msg, m.keys.Clear):
		m.app.Archive(m.orch)
		m.orch.Clear()
		m.notice = ""
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()

	switch strings.TrimSpace(text) {
	case "/new":
		m.app.Reset(m.orch)
		m.input.Reset()
		m.notice = "Started a new conversation."
		m.refresh()
		return m, nil
	case "/quit", "/exit":
		return m, tea.Quit
	}

	cmd, err := m.orch.Submit(text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, chat.ErrBusy):
		m.notice = "Please wait for the current reply to finish."
		return m, nil
	case err != nil:
		m.notice = err.Error()
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.refresh()
	return m, tea.Batch(cmd, m.spinner.Tick)
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	total := m.app.History.Len()
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.History):
		m.screen = ScreenChat
	case key.Matches(msg, m.keys.Up):
		if m.historyCursor > 0 {
			m.historyCursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.historyCursor < total-1 {
			m.historyCursor++
		}
	case key.Matches(msg, m.keys.Submit):
		if total > 0 {
			m.screen = ScreenHistoryDetail
		}
	case key.Matches(msg, m.keys.Export):
		m.exportSelected()
	}
	m.refresh()
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Submit):
		m.screen = ScreenHistory
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.History):
		m.screen = ScreenChat
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Export):
		m.exportSelected()
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// exportSelected writes the selected conversation as Markdown under the
// data directory.
func (m *Model) exportSelected() {
	conv, err := m.app.History.At(m.historyCursor + 1)
	if err != nil {
		m.notice = "Nothing to export."
		return
	}
	opts := export.DefaultOptions()
	opts.OutputDir = filepath.Join(m.app.Config.DataDir(), exportDir)
	path, err := export.ExportToFile(conv, export.NewMarkdownExporter(opts), opts)
	if err != nil {
		m.notice = "Export failed: " + err.Error()
		return
	}
	m.notice = "Exported to " + path
}

func (m *Model) clampCursor() {
	if total := m.app.History.Len(); m.historyCursor >= total {
		m.historyCursor = max(0, total-1)
	}
}

// =============================================================================
// VOICE INPUT
// =============================================================================

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	listener := m.app.Listener
	if listener == nil {
		m.notice = "Voice input is not configured (voice.listen_command)."
		return m, nil
	}

	if listener.Listening() {
		listener.Stop()
		return m, nil
	}

	if err := listener.Start(m.ctx); err != nil {
		if !errors.Is(err, voice.ErrAlreadyListening) {
			m.notice = "Could not start voice input: " + err.Error()
		}
		return m, nil
	}
	m.recording = true
	m.notice = ""
	return m, waitForTranscript(listener.Updates())
}

func (m Model) handleTranscript(msg transcriptMsg) (tea.Model, tea.Cmd) {
	listener := m.app.Listener
	if listener == nil {
		return m, nil
	}
	if msg.done {
		m.recording = false
		if text := listener.Transcript(); text != "" {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
		return m, nil
	}
	m.input.SetValue(msg.text)
	m.input.CursorEnd()
	return m, waitForTranscript(listener.Updates())
}

// =============================================================================
// CONTENT
// =============================================================================

// refresh rebuilds the viewport content for the active screen.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	switch m.screen {
	case ScreenHistory:
		m.viewport.SetContent(m.renderHistoryList())
		m.viewport.GotoTop()
	case ScreenHistoryDetail:
		conv, err := m.app.History.At(m.historyCursor + 1)
		if err != nil {
			m.screen = ScreenHistory
			m.viewport.SetContent(m.renderHistoryList())
			return
		}
		m.viewport.SetContent(history.FormatConversation(conv))
		m.viewport.GotoTop()
	default:
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	}
}
