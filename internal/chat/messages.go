// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"
)

// =============================================================================
// CHAT MESSAGE
// =============================================================================

// Message is one entry in the on-screen message list. Content grows during
// reveal and is fixed afterwards.
type Message struct {
	ID        string
	Content   string
	IsUser    bool
	Timestamp time.Time
}

// =============================================================================
// LOOP MESSAGES
// =============================================================================

// CompletionMsg carries the reply for the exchange started in Epoch.
type CompletionMsg struct {
	Epoch uint64
	Text  string
}

// RevealTickMsg reveals the next character of the reply for Epoch.
type RevealTickMsg struct {
	Epoch uint64
}

// ExchangeDoneMsg reports a fully revealed and recorded exchange. It is
// returned from Update as a command result so views can refresh history.
type ExchangeDoneMsg struct {
	UserText  string
	ReplyText string
	Spoken    bool
}
