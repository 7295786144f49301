// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/jeranaias/pocket-tui/internal/export"
	"github.com/jeranaias/pocket-tui/internal/history"
)

// HandleHistory handles "history [list|show N|json|export N]".
func HandleHistory(args Args, out io.Writer) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	rec := history.NewRecorder(cfg.HistoryPath(), zerolog.Nop())
	rec.Load()

	switch args.Subcommand {
	case "list", "ls":
		fmt.Fprint(out, history.FormatList(rec.Conversations()))
		if rec.Len() == 0 {
			fmt.Fprintln(out)
		}
		return nil

	case "show":
		index, err := ParseIndex(first(args.Raw))
		if err != nil {
			return err
		}
		conv, err := rec.At(index)
		if err != nil {
			return &CommandError{Command: "history", Action: "show", Err: err}
		}
		fmt.Fprint(out, history.FormatConversation(conv))
		return nil

	case "export":
		return exportConversation(rec, args, out)

	case "json":
		data, err := history.ExportJSON(rec.Conversations())
		if err != nil {
			return &CommandError{Command: "history", Action: "export", Err: err}
		}
		fmt.Fprintln(out, string(data))
		return nil

	default:
		return &UsageError{Command: "history", Message: fmt.Sprintf("unknown subcommand %q (list, show N, json, export N)", args.Subcommand)}
	}
}

// exportConversation writes one conversation with the export package.
func exportConversation(rec *history.Recorder, args Args, out io.Writer) error {
	index, err := ParseIndex(first(args.Raw))
	if err != nil {
		return err
	}
	conv, err := rec.At(index)
	if err != nil {
		return &CommandError{Command: "history", Action: "export", Err: err}
	}

	opts := export.DefaultOptions()
	if args.OutDir != "" {
		opts.OutputDir = args.OutDir
	}
	exporter, err := export.ForFormat(args.Format, opts)
	if err != nil {
		return &UsageError{Command: "history", Message: err.Error()}
	}
	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		return &CommandError{Command: "history", Action: "export", Err: err}
	}
	fmt.Fprintln(out, SuccessStyle.Render("Exported")+" "+path)
	return nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
