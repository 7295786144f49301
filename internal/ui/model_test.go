// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestModel(t *testing.T, reply string) Model {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"` + reply + `"}}]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Completion.Endpoint = srv.URL
	cfg.APIKey = "hf_test"
	cfg.Voice.Enabled = false
	cfg.Reveal.TickMs = 1
	cfg.UI.Markdown = false

	a, err := app.New(app.Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	m := New(context.Background(), a, styles.NewThemeFor(termenv.Ascii, true))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

// drain runs cmd and every follow-up until the chain is exhausted.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 10000, "command chain did not terminate")
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch msg := msg.(type) {
		case nil:
			continue
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case spinner.TickMsg:
			// Spinner frames are cosmetic.
			continue
		}
		next, nc := m.Update(msg)
		m = next.(Model)
		queue = append(queue, nc)
	}
	return m
}

// findCompletion runs cmd and returns the completion it produces, ignoring
// the spinner.
func findCompletion(t *testing.T, cmd tea.Cmd) chat.CompletionMsg {
	t.Helper()
	switch msg := cmd().(type) {
	case chat.CompletionMsg:
		return msg
	case tea.BatchMsg:
		for _, c := range msg {
			if c == nil {
				continue
			}
			if done, ok := c().(chat.CompletionMsg); ok {
				return done
			}
		}
	}
	t.Fatal("no completion produced")
	return chat.CompletionMsg{}
}

func typeAndSend(t *testing.T, m Model, text string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+o":
		return tea.KeyMsg{Type: tea.KeyCtrlO}
	case "ctrl+l":
		return tea.KeyMsg{Type: tea.KeyCtrlL}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+e":
		return tea.KeyMsg{Type: tea.KeyCtrlE}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// =============================================================================
// CHAT FLOW
// =============================================================================

func TestModel_ViewBeforeSize(t *testing.T) {
	m := newTestModel(t, "x")
	m.ready = false
	assert.Equal(t, "Starting pocket...", m.View())
}

func TestModel_SubmitRevealAndRecord(t *testing.T) {
	m := newTestModel(t, "Let us take it slowly.")

	m, cmd := typeAndSend(t, m, "I feel anxious today")
	require.NotNil(t, cmd)
	assert.Equal(t, "", m.input.Value(), "input is cleared on send")
	assert.Equal(t, chat.AwaitingCompletion, m.orch.State())
	assert.Contains(t, m.View(), "I feel anxious today")

	m = drain(t, m, cmd)

	assert.Equal(t, chat.Idle, m.orch.State())
	msgs := m.orch.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Let us take it slowly.", msgs[1].Content)
	assert.Contains(t, m.View(), "Let us take it slowly.")
	assert.Equal(t, 1, m.app.History.Len())
}

func TestModel_BusyNotice(t *testing.T) {
	m := newTestModel(t, "ok")

	m, cmd := typeAndSend(t, m, "first")
	require.NotNil(t, cmd)

	m, second := typeAndSend(t, m, "second")
	assert.Nil(t, second)
	assert.Contains(t, m.notice, "wait")
	assert.Equal(t, "second", m.input.Value(), "rejected text stays in the input")
	assert.Len(t, m.orch.Messages(), 1)

	drain(t, m, cmd)
}

func TestModel_EmptySubmitIgnored(t *testing.T) {
	m := newTestModel(t, "ok")
	m, cmd := typeAndSend(t, m, "   ")
	assert.Nil(t, cmd)
	assert.Empty(t, m.orch.Messages())
	assert.Contains(t, m.View(), emptyChatText)
}

func TestModel_ClearArchivesSession(t *testing.T) {
	m := newTestModel(t, "ok")
	m, cmd := typeAndSend(t, m, "hello")
	m = drain(t, m, cmd)

	next, _ := m.Update(keyMsg("ctrl+l"))
	m = next.(Model)

	assert.Empty(t, m.orch.Messages())
	assert.Equal(t, 1, m.app.Sessions.Len())
	// The completion context is kept by a plain clear.
	assert.Len(t, m.app.Client.Turns(), 2)
}

func TestModel_NewResetsContext(t *testing.T) {
	m := newTestModel(t, "ok")
	m, cmd := typeAndSend(t, m, "hello")
	m = drain(t, m, cmd)

	m, cmd = typeAndSend(t, m, "/new")
	assert.Nil(t, cmd)
	assert.Empty(t, m.orch.Messages())
	assert.Empty(t, m.app.Client.Turns())
	assert.Equal(t, "Started a new conversation.", m.notice)
}

func TestModel_ClearMidRevealDropsExchange(t *testing.T) {
	m := newTestModel(t, "a fairly long reply to reveal")
	m, cmd := typeAndSend(t, m, "hello")

	completion := findCompletion(t, cmd)
	next, tick := m.Update(completion)
	m = next.(Model)
	require.Equal(t, chat.Revealing, m.orch.State())

	next, _ = m.Update(keyMsg("ctrl+l"))
	m = next.(Model)

	m = drain(t, m, tick)
	assert.Empty(t, m.orch.Messages())
	assert.Equal(t, 0, m.app.History.Len())
	assert.Equal(t, 0, m.app.Sessions.Len(), "nothing finished, nothing archived")
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, "ok")
	_, cmd := m.Update(keyMsg("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = typeAndSend(t, m, "/quit")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

// =============================================================================
// HISTORY
// =============================================================================

func TestModel_HistoryNavigation(t *testing.T) {
	m := newTestModel(t, "ok")
	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	m.app.History.Add("Older chat", history.Exchange("first question", "first answer", at))
	m.app.History.Add("Newer chat", history.Exchange("second question", "second answer", at))

	next, _ := m.Update(keyMsg("ctrl+o"))
	m = next.(Model)
	assert.Equal(t, ScreenHistory, m.Screen())
	view := m.View()
	assert.Contains(t, view, "Conversation history (2)")
	assert.Contains(t, view, "Newer chat")

	next, _ = m.Update(keyMsg("down"))
	m = next.(Model)
	assert.Equal(t, 1, m.historyCursor)

	next, _ = m.Update(keyMsg("enter"))
	m = next.(Model)
	assert.Equal(t, ScreenHistoryDetail, m.Screen())
	assert.Contains(t, m.View(), "first answer")

	next, _ = m.Update(keyMsg("esc"))
	m = next.(Model)
	assert.Equal(t, ScreenHistory, m.Screen())

	next, _ = m.Update(keyMsg("esc"))
	m = next.(Model)
	assert.Equal(t, ScreenChat, m.Screen())
}

func TestModel_HistoryExport(t *testing.T) {
	m := newTestModel(t, "ok")

	next, _ := m.Update(keyMsg("ctrl+o"))
	m = next.(Model)
	next, _ = m.Update(keyMsg("ctrl+e"))
	m = next.(Model)
	assert.Equal(t, "Nothing to export.", m.notice)

	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	m.app.History.Add("Chat", history.Exchange("q", "a", at))
	next, _ = m.Update(keyMsg("ctrl+e"))
	m = next.(Model)
	require.True(t, strings.HasPrefix(m.notice, "Exported to "), m.notice)

	path := strings.TrimPrefix(m.notice, "Exported to ")
	assert.Equal(t, filepath.Join(m.app.Config.DataDir(), exportDir), filepath.Dir(path))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestModel_HistoryKeysDoNotType(t *testing.T) {
	m := newTestModel(t, "ok")
	next, _ := m.Update(keyMsg("ctrl+o"))
	m = next.(Model)
	next, _ = m.Update(keyMsg("j"))
	m = next.(Model)
	assert.Equal(t, "", m.input.Value())
}

func TestModel_HistoryChangedReloads(t *testing.T) {
	m := newTestModel(t, "ok")

	// Another process appends to the same file.
	other := history.NewRecorder(m.app.History.Path(), m.app.Logger)
	other.Load()
	other.Add("From elsewhere", history.Exchange("q", "a", time.Now()))
	assert.Equal(t, 0, m.app.History.Len())

	next, cmd := m.Update(historyChangedMsg{})
	m = next.(Model)
	assert.Equal(t, 1, m.app.History.Len())
	assert.NotNil(t, cmd, "keeps waiting for further changes")
}

func TestModel_NotifyHistoryChangedNeverBlocks(t *testing.T) {
	m := newTestModel(t, "ok")
	for i := 0; i < 5; i++ {
		m.NotifyHistoryChanged()
	}
	assert.IsType(t, historyChangedMsg{}, m.waitForHistory()())
}

// =============================================================================
// VOICE
// =============================================================================

func TestModel_RecordWithoutListener(t *testing.T) {
	m := newTestModel(t, "ok")
	next, cmd := m.Update(keyMsg("ctrl+r"))
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "not configured")
}

func TestModel_TranscriptFillsInput(t *testing.T) {
	m := newTestModel(t, "ok")
	updates := make(chan string, 2)
	updates <- "I feel"
	updates <- "I feel anxious"
	close(updates)

	cmd := waitForTranscript(updates)
	msg := cmd()
	assert.Equal(t, transcriptMsg{text: "I feel"}, msg)
	assert.Equal(t, transcriptMsg{text: "I feel anxious"}, waitForTranscript(updates)())
	assert.Equal(t, transcriptMsg{done: true}, waitForTranscript(updates)())
	assert.Nil(t, waitForTranscript(nil))

	// Without a listener transcript messages are ignored.
	next, _ := m.Update(msg)
	assert.Equal(t, "", next.(Model).input.Value())
}

// =============================================================================
// RENDERING
// =============================================================================

func TestBubble_ShrinksToContent(t *testing.T) {
	theme := styles.NewThemeFor(termenv.Ascii, true)
	short := bubble(theme.UserBubble, "hi", 60)
	long := bubble(theme.UserBubble, strings.Repeat("word ", 40), 60)

	firstLine := func(s string) string { return strings.SplitN(s, "\n", 2)[0] }
	assert.Less(t, len([]rune(firstLine(short))), len([]rune(firstLine(long))))
	for _, line := range strings.Split(long, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 60)
	}
}

func TestKeyMap_HelpText(t *testing.T) {
	text := DefaultKeyMap().HelpText()
	assert.Contains(t, text, "ctrl+o")
	assert.Contains(t, text, "history")
	assert.Contains(t, text, "ctrl+r")
}

func TestMarkdownCache(t *testing.T) {
	c := &markdownCache{enabled: false}
	assert.Equal(t, "**x**", c.render("id", "**x**", 40))

	c = &markdownCache{enabled: true}
	out := c.render("id", "**bold** text", 40)
	assert.Contains(t, out, "bold")
	assert.Equal(t, out, c.render("id", "ignored", 40), "cached by message ID")
}
