// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/ui/styles"
)

// Screen is the active view.
type Screen int

const (
	// ScreenChat is the conversation view.
	ScreenChat Screen = iota
	// ScreenHistory lists committed conversations.
	ScreenHistory
	// ScreenHistoryDetail shows one committed conversation.
	ScreenHistoryDetail
)

// Input limits
const maxInputChars = 2000

// =============================================================================
// MODEL MESSAGES
// =============================================================================

// historyChangedMsg reports that the history file changed on disk.
type historyChangedMsg struct{}

// transcriptMsg carries a voice transcript update.
type transcriptMsg struct {
	text string
	done bool
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the root Bubble Tea model.
type Model struct {
	app   *app.App
	orch  *chat.Orchestrator
	ctx   context.Context
	theme *styles.Theme
	keys  KeyMap

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	md *markdownCache

	screen        Screen
	historyCursor int
	notice        string
	recording     bool

	width  int
	height int
	ready  bool

	historyEvents chan struct{}
}

// New creates the root model for a.
func New(ctx context.Context, a *app.App, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Share what's on your mind..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = maxInputChars
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(styles.ThinkingSpinner))
	spin.Style = theme.Loading

	return Model{
		app:           a,
		orch:          a.NewOrchestrator(ctx),
		ctx:           ctx,
		theme:         theme,
		keys:          DefaultKeyMap(),
		input:         input,
		viewport:      viewport.New(80, 20),
		spinner:       spin,
		md:            &markdownCache{enabled: a.Config.UI.Markdown},
		screen:        ScreenChat,
		historyEvents: make(chan struct{}, 1),
	}
}

// Orchestrator returns the model's chat orchestrator.
func (m Model) Orchestrator() *chat.Orchestrator {
	return m.orch
}

// Screen returns the active view.
func (m Model) Screen() Screen {
	return m.screen
}

// NotifyHistoryChanged is safe to call from any goroutine.
func (m Model) NotifyHistoryChanged() {
	select {
	case m.historyEvents <- struct{}{}:
	default:
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForHistory())
}

func (m Model) waitForHistory() tea.Cmd {
	ch := m.historyEvents
	return func() tea.Msg {
		<-ch
		return historyChangedMsg{}
	}
}

func waitForTranscript(updates <-chan string) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-updates
		if !ok {
			return transcriptMsg{done: true}
		}
		return transcriptMsg{text: line}
	}
}

// markdownCache renders finished replies with glamour. Entries are keyed
// by message ID and dropped when the wrap width changes.
type markdownCache struct {
	enabled  bool
	renderer *glamour.TermRenderer
	width    int
	rendered map[string]string
}

// render returns the markdown rendering of content, or content itself when
// rendering is off or fails.
func (c *markdownCache) render(id, content string, width int) string {
	if !c.enabled {
		return content
	}
	if c.renderer == nil || c.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			c.enabled = false
			return content
		}
		c.renderer = r
		c.width = width
		c.rendered = make(map[string]string)
	}
	if out, ok := c.rendered[id]; ok {
		return out
	}
	out, err := c.renderer.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	c.rendered[id] = out
	return out
}
