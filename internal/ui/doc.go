// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides pocket's full-screen Bubble Tea interface.
//
// The Model owns the chat orchestrator for the lifetime of the program and
// is the only place its Update is called, so every chat state change happens
// on the Bubble Tea event loop. Background work (network calls, reveal
// ticks, history file changes, voice transcripts) comes back as messages.
//
// # Key Bindings
//
//	enter    send message
//	ctrl+o   conversation history
//	ctrl+r   start/stop voice input
//	ctrl+l   clear messages
//	ctrl+c   quit
//
// Typing /new resets the conversation context as well as the screen.
package ui
