// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the interface.
type KeyMap struct {
	Submit   key.Binding
	History  key.Binding
	Record   key.Binding
	Clear    key.Binding
	Back     key.Binding
	Export   key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "history"),
		),
		Record: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "mic"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "clear"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "export"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "previous"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "next"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ChatHelp returns the bindings shown in the chat status bar.
func (k KeyMap) ChatHelp() []key.Binding {
	return []key.Binding{k.Submit, k.History, k.Record, k.Clear, k.Quit}
}

// HistoryHelp returns the bindings shown in the history status bar.
func (k KeyMap) HistoryHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Submit, k.Export, k.Back, k.Quit}
}

// HelpText lists every binding, one per line, for `pocket help`.
func (k KeyMap) HelpText() string {
	bindings := []key.Binding{k.Submit, k.History, k.Record, k.Clear, k.Back, k.Export, k.PageUp, k.PageDown, k.Quit}
	var sb strings.Builder
	for _, b := range bindings {
		h := b.Help()
		sb.WriteString("  " + h.Key + strings.Repeat(" ", max(1, 10-len(h.Key))) + h.Desc + "\n")
	}
	return sb.String()
}
