// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/ui/styles"
	"github.com/jeranaias/pocket-tui/internal/util"
)

const emptyChatText = "Share what's on your mind. Replies are read aloud when voice is on."

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting pocket..."
	}

	notice := ""
	if m.notice != "" {
		notice = m.theme.Warning.Render(util.TruncateWidth(m.notice, m.width))
	}

	input := m.input.View()
	if m.screen != ScreenChat {
		input = m.theme.Muted.Render("esc to return to the chat")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		notice,
		m.theme.Input.Width(m.width).Render(input),
		m.renderStatus(),
	)
}

// =============================================================================
// HEADER AND STATUS BAR
// =============================================================================

func (m Model) renderHeader() string {
	left := m.theme.HeaderBrand.Render("pocket") + "  " + m.theme.HeaderModel.Render(m.app.Client.Model())

	var right string
	switch {
	case m.recording:
		right = m.theme.Recording.Render(styles.RecordingDot + " listening")
	case !m.app.Client.IsConfigured():
		right = m.theme.Warning.Render("no API key")
	case m.app.Config.Voice.Enabled:
		right = m.theme.VoiceOn.Render("voice on")
	default:
		right = m.theme.VoiceOff.Render("voice off")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderStatus() string {
	bindings := m.keys.ChatHelp()
	if m.screen != ScreenChat {
		bindings = m.keys.HistoryHelp()
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	line := strings.Join(parts, m.theme.ShortcutDesc.Render("  "))
	return m.theme.StatusBar.Width(m.width).Render(line)
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m Model) renderMessages() string {
	msgs := m.orch.Messages()
	if len(msgs) == 0 && !m.orch.Loading() {
		return m.theme.Muted.Render(emptyChatText)
	}

	maxWidth := styles.BubbleWidth(m.width)
	revealing := m.orch.State() == chat.Revealing

	blocks := make([]string, 0, len(msgs)+1)
	for i, msg := range msgs {
		inProgress := revealing && i == len(msgs)-1
		blocks = append(blocks, m.renderMessage(msg, inProgress, maxWidth))
	}
	if m.orch.Loading() {
		blocks = append(blocks, m.spinner.View()+m.theme.Loading.Render(" thinking"))
	}
	return strings.Join(blocks, "\n")
}

func (m Model) renderMessage(msg chat.Message, inProgress bool, maxWidth int) string {
	stamp := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	if msg.IsUser {
		box := bubble(m.theme.UserBubble, msg.Content, maxWidth)
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, lipgloss.JoinVertical(lipgloss.Right, box, stamp))
	}

	content := msg.Content
	if inProgress {
		content += styles.TypingCursor
	} else {
		content = m.md.render(msg.ID, content, maxWidth-4)
	}
	box := bubble(m.theme.AssistantBubble, content, maxWidth)
	return lipgloss.JoinVertical(lipgloss.Left, box, stamp)
}

// bubble frames content, shrinking the frame to short content.
func bubble(style lipgloss.Style, content string, maxWidth int) string {
	// Padding and border add four columns.
	w := lipgloss.Width(content) + 2
	if w > maxWidth-2 {
		w = maxWidth - 2
	}
	if w < 3 {
		w = 3
	}
	return style.Width(w).Render(content)
}

// =============================================================================
// HISTORY
// =============================================================================

func (m Model) renderHistoryList() string {
	convs := m.app.History.Conversations()

	var sb strings.Builder
	sb.WriteString(m.theme.ListTitle.Render("Conversation history (" + strconv.Itoa(len(convs)) + ")"))
	sb.WriteString("\n")

	if len(convs) == 0 {
		sb.WriteString(m.theme.Muted.Render("No conversations yet."))
		return sb.String()
	}

	for i, c := range convs {
		line := util.PadRight(c.Title, 26) + "  " +
			m.theme.Muted.Render(strconv.Itoa(len(c.Messages))+" messages") + "  " +
			util.TruncateWidth(c.Preview(), max(10, m.width-50))
		if i == m.historyCursor {
			sb.WriteString(m.theme.ListSelected.Render(line))
		} else {
			sb.WriteString(m.theme.ListItem.Render(line))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
