// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package voice wraps the speech collaborators.
//
// Both directions are delegated to external programs: a text-to-speech
// command (say, espeak) for output and a speech-to-text command that prints
// the running transcript one line at a time for input. The chat flow only
// sees the Speaker and Listener interfaces.
package voice
