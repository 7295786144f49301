// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for pocket.
//
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
// NewTheme probes the terminal with termenv once; the resulting Theme is
// passed to the views rather than kept as a global.
//
// # Layout
//
//	+----------------------------------------+
//	| pocket  model-name            ● voice  |  Header
//	|                                        |
//	|                    I feel anxious  ()  |  UserBubble
//	|  () Let's talk about it.               |  AssistantBubble
//	|                                        |
//	| > type a message_                      |  Input
//	| enter send  ctrl+o history  ctrl+r mic |  StatusBar
//	+----------------------------------------+
package styles
