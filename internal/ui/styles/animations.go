// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// =============================================================================
// LOADING AND REVEAL INDICATORS
// =============================================================================

// ThinkingSpinner is shown while a reply is awaited.
var ThinkingSpinner = spinner.Spinner{
	Frames: []string{"·  ", "·· ", "···", " ··", "  ·", "   "},
	FPS:    time.Second / 6,
}

// TypingCursor trails the assistant text during reveal.
const TypingCursor = "▍"

// RecordingDot marks an active voice recording.
const RecordingDot = "●"
