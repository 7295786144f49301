// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jeranaias/pocket-tui/internal/sessions"
	"github.com/jeranaias/pocket-tui/internal/util"
)

// HandleSessions handles "sessions [list|show N|delete N|clear]".
func HandleSessions(args Args, out io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	store, err := sessions.Open(cfg.SessionDBPath(), zerolog.Nop())
	if err != nil {
		return &CommandError{Command: "sessions", Action: "open", Err: err}
	}
	defer store.Close()

	switch args.Subcommand {
	case "list", "ls":
		fmt.Fprint(out, FormatSessionList(store.Sessions()))
		return nil

	case "show":
		index, err := ParseIndex(first(args.Raw))
		if err != nil {
			return err
		}
		s, err := store.At(index)
		if err != nil {
			return &CommandError{Command: "sessions", Action: "show", Err: err}
		}
		fmt.Fprint(out, FormatSession(s))
		return nil

	case "delete", "rm":
		index, err := ParseIndex(first(args.Raw))
		if err != nil {
			return err
		}
		s, err := store.At(index)
		if err == nil {
			err = store.Remove(s.ID)
		}
		if err != nil {
			return &CommandError{Command: "sessions", Action: "delete", Err: err}
		}
		fmt.Fprintln(out, SuccessStyle.Render("Deleted")+" "+s.Title)
		return nil

	case "clear":
		n := store.Len()
		if err := store.Clear(); err != nil {
			return &CommandError{Command: "sessions", Action: "clear", Err: err}
		}
		fmt.Fprintf(out, "%s %d session(s)\n", SuccessStyle.Render("Cleared"), n)
		return nil

	default:
		return &UsageError{Command: "sessions", Message: fmt.Sprintf("unknown subcommand %q (list, show N, delete N, clear)", args.Subcommand)}
	}
}

// FormatSessionList formats archived sessions as a numbered table.
func FormatSessionList(list []sessions.Session) string {
	if len(list) == 0 {
		return "No archived sessions.\n"
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + " " + util.PadRight("Archived", 26) + " " + util.PadRight("Msgs", 5) + " First message\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	for i, s := range list {
		firstMsg := ""
		if len(s.Messages) > 0 {
			firstMsg = util.SingleLine(s.Messages[0].Content)
		}
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) + " " +
			util.PadRight(util.TruncateWidth(s.Title, 26), 26) + " " +
			util.PadRight(strconv.Itoa(len(s.Messages)), 5) + " " +
			util.TruncateWidth(firstMsg, 34) + "\n")
	}
	return sb.String()
}

// FormatSession renders one archived session as a transcript.
func FormatSession(s sessions.Session) string {
	var sb strings.Builder
	sb.WriteString(s.Title + "\n\n")
	for _, msg := range s.Messages {
		label := "You"
		if msg.Role == sessions.RoleAssistant {
			label = "Pocket"
		}
		sb.WriteString(label + " (" + msg.Timestamp.Format("15:04") + "):\n")
		sb.WriteString(msg.Content + "\n\n")
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}
