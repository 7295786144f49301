// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/jeranaias/pocket-tui/internal/util"
)

// =============================================================================
// LIST FORMATTING
// =============================================================================

// FormatList formats conversations as a numbered table.
func FormatList(conversations []Conversation) string {
	if len(conversations) == 0 {
		return "No conversations yet."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + " " + util.PadRight("Title", 26) + " " + util.PadRight("Msgs", 5) + " Preview\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for i, c := range conversations {
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) + " " +
			util.PadRight(util.TruncateWidth(c.Title, 26), 26) + " " +
			util.PadRight(strconv.Itoa(len(c.Messages)), 5) + " " +
			util.TruncateWidth(c.Preview(), 34) + "\n")
	}
	return sb.String()
}

// FormatConversation renders one conversation as a plain transcript.
func FormatConversation(c Conversation) string {
	var sb strings.Builder
	sb.WriteString(c.Title + "\n\n")
	for _, msg := range c.Messages {
		label := "You"
		if msg.Role != RoleUser {
			label = "Pocket"
		}
		sb.WriteString(label + " (" + msg.Timestamp.Format("15:04") + "):\n")
		sb.WriteString(msg.Content + "\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// ExportJSON exports conversations as pretty-printed JSON.
func ExportJSON(conversations []Conversation) ([]byte, error) {
	if conversations == nil {
		conversations = []Conversation{}
	}
	return json.MarshalIndent(conversations, "", "  ")
}
