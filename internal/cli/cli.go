// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/ui"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdHistory
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command's name as typed.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdAsk:
		return "ask"
	case CmdHistory:
		return "history"
	case CmdSessions:
		return "sessions"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Model      string
	NoVoice    bool
	Verbose    bool
	JSON       bool
	Force      bool
	Format     string // history export format
	OutDir     string // history export directory

	// Command-specific
	Subcommand string
	Query      string
	Raw        []string
}

// AppOptions converts the global flags into app construction options.
func (a Args) AppOptions() app.Options {
	return app.Options{
		ConfigPath: a.ConfigPath,
		Model:      a.Model,
		NoVoice:    a.NoVoice,
		Verbose:    a.Verbose,
	}
}

// boolFlags never take a value.
var boolFlags = []string{"no-voice", "verbose", "v", "json", "force", "help", "h", "version"}

const usageText = `pocket - a pocket therapist for the terminal

Usage:
  pocket                       Start the full-screen chat (default on a terminal)
  pocket chat                  Line-mode chat with input history
  pocket ask "message"         Send one message and print the reply
  pocket history [list]        List committed conversations (newest first)
  pocket history show N        Print conversation N
  pocket history json          Print every conversation as JSON
  pocket history export N      Write conversation N to a file
        [--format markdown|json] [--out DIR]
  pocket sessions [list]       List archived chats
  pocket sessions show N       Print archived chat N
  pocket sessions delete N     Delete archived chat N
  pocket sessions clear        Delete every archived chat
  pocket config [show]         Print the effective configuration
  pocket config path           Print the config file location
  pocket config init [--force] Write a default config file
  pocket version               Print version information
  pocket help                  Show this help

Global flags:
  --config PATH    Config file (TOML, or JSON when it ends in .json)
  --model NAME     Override completion.model
  --no-voice       Do not read replies aloud
  --verbose, -v    Log at debug level to stderr
  --json           JSON output for ask

Environment:
  HF_KEY           API key for the completion service (also read from .env)
  POCKET_*         Overrides for config keys, e.g. POCKET_MODEL

Chat commands:
  /new             Archive this chat and start a fresh conversation
  /history         List committed conversations (line mode)
  /quit, /exit     Leave

Full-screen keys:
`

// Usage returns the help text.
func Usage() string {
	return usageText + ui.DefaultKeyMap().HelpText()
}

// Parse parses argv (without the program name).
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlags...)

	args := Args{
		ConfigPath: p.Flag("config"),
		Model:      p.Flag("model"),
		NoVoice:    p.BoolFlag("no-voice"),
		Verbose:    p.BoolFlag("verbose") || p.BoolFlag("v"),
		JSON:       p.BoolFlag("json"),
		Force:      p.BoolFlag("force"),
		Format:     p.Flag("format"),
		OutDir:     p.Flag("out"),
	}
	for _, name := range []string{"config", "model", "format", "out"} {
		if p.HasFlag(name) && p.Flag(name) == "" {
			return CmdHelp, args, &UsageError{Message: "--" + name + " requires a value"}
		}
	}

	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}

	if p.PositionalCount() == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(p.Positional(0))
	args.Subcommand = p.Positional(1)
	args.Raw = p.PositionalFrom(2)

	switch name {
	case "tui":
		return CmdTUI, args, nil

	case "chat", "repl":
		return CmdChat, args, nil

	case "ask":
		args.Subcommand = ""
		args.Raw = nil
		args.Query = strings.TrimSpace(strings.Join(p.PositionalFrom(1), " "))
		if args.Query == "" {
			return CmdAsk, args, &UsageError{Command: "ask", Message: `a message is required, e.g. pocket ask "I feel anxious today"`}
		}
		return CmdAsk, args, nil

	case "history", "h":
		if args.Subcommand == "" {
			args.Subcommand = "list"
		}
		return CmdHistory, args, nil

	case "sessions", "session":
		if args.Subcommand == "" {
			args.Subcommand = "list"
		}
		return CmdSessions, args, nil

	case "config":
		if args.Subcommand == "" {
			args.Subcommand = "show"
		}
		return CmdConfig, args, nil

	case "version":
		return CmdVersion, args, nil

	case "help":
		return CmdHelp, args, nil

	default:
		return CmdHelp, args, &UsageError{Message: fmt.Sprintf("unknown command %q (run 'pocket help')", name)}
	}
}

// Run executes cmd. Line-mode output goes to out.
func Run(ctx context.Context, cmd Command, args Args, out io.Writer) error {
	switch cmd {
	case CmdTUI:
		// Without a terminal the full-screen UI cannot read keys.
		if !IsTTY() {
			return HandleChat(ctx, args, out)
		}
		return HandleTUI(ctx, args)
	case CmdChat:
		return HandleChat(ctx, args, out)
	case CmdAsk:
		return HandleAsk(ctx, args, out)
	case CmdHistory:
		return HandleHistory(args, out)
	case CmdSessions:
		return HandleSessions(args, out)
	case CmdConfig:
		return HandleConfig(args, out)
	case CmdVersion:
		_, err := fmt.Fprintln(out, VersionString())
		return err
	default:
		_, err := io.WriteString(out, Usage())
		return err
	}
}

// VersionString describes the build.
func VersionString() string {
	return fmt.Sprintf("pocket %s (commit %s, built %s) %s/%s",
		Version, GitCommit, BuildDate, runtime.GOOS, runtime.GOARCH)
}

// HandleTUI runs the full-screen chat.
func HandleTUI(ctx context.Context, args Args) error {
	a, err := app.New(args.AppOptions())
	if err != nil {
		return configError(err)
	}
	defer a.Close()
	return ui.Run(ctx, a)
}
