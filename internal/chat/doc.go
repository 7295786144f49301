// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat orchestrator.
//
// The Orchestrator is a state machine driven by Bubble Tea messages:
//
//	Idle -> AwaitingCompletion -> Revealing -> Idle
//
// Submit appends the user message and returns a tea.Cmd that performs the
// network call off the event loop. Its CompletionMsg and the RevealTickMsg
// chain that follows are applied with Update, which must only be called
// from the loop that owns the orchestrator (the TUI's Update or Drive).
//
// Every message carries the epoch it was issued in. Clear bumps the epoch,
// so completions and ticks from an interrupted exchange are dropped.
package chat
