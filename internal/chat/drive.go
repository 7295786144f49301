// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Drive runs cmd and every follow-up command on the calling goroutine until
// the chain ends, calling onUpdate after each applied message. It serves
// line-mode front ends that have no Bubble Tea program.
func Drive(o *Orchestrator, cmd tea.Cmd, onUpdate func(msg tea.Msg)) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		cmd = o.Update(msg)
		if onUpdate != nil {
			onUpdate(msg)
		}
	}
}
