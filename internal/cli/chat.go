// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/peterh/liner"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/chat"
	"github.com/jeranaias/pocket-tui/internal/history"
)

const lineHistoryFile = "chat_history"

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads one line of chat input. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func loadLineHistory(line *liner.State, path string) {
	if f, err := os.Open(path); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
}

// SECURITY: input history is owner-only (0600).
func saveLineHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = line.WriteHistory(f)
}

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-mode chat. Replies are revealed on out as they grow.
type REPL struct {
	app    *app.App
	orch   *chat.Orchestrator
	reader LineReader
	out    io.Writer
}

// NewREPL creates a REPL reading from reader.
func NewREPL(ctx context.Context, a *app.App, reader LineReader, out io.Writer) *REPL {
	return &REPL{
		app:    a,
		orch:   a.NewOrchestrator(ctx),
		reader: reader,
		out:    out,
	}
}

// Orchestrator returns the REPL's chat orchestrator.
func (r *REPL) Orchestrator() *chat.Orchestrator {
	return r.orch
}

// Run reads lines until EOF, Ctrl+C, a quit command or ctx ends. The
// finished chat is archived on the way out.
func (r *REPL) Run(ctx context.Context) error {
	defer r.app.Archive(r.orch)

	fmt.Fprintln(r.out, TitleStyle.Render("pocket")+" "+MutedStyle.Render(r.app.Client.Model()))
	if !r.app.Client.IsConfigured() {
		fmt.Fprintln(r.out, WarningStyle.Render("HF_KEY is not set; replies will report a missing API key."))
	}
	fmt.Fprintln(r.out, MutedStyle.Render("Type /new for a fresh conversation, /quit to leave."))

	for ctx.Err() == nil {
		input, err := r.reader.Prompt("you> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}
		if strings.TrimSpace(input) != "" {
			r.reader.AppendHistory(input)
		}

		more, err := r.Handle(input)
		if err != nil {
			fmt.Fprintln(r.out, ErrorStyle.Render("[Error]")+" "+err.Error())
		}
		if !more {
			return nil
		}
	}
	return nil
}

// Handle processes one input line. It returns false when the user asked
// to leave.
func (r *REPL) Handle(input string) (bool, error) {
	input = strings.TrimSpace(input)
	switch strings.ToLower(input) {
	case "":
		return true, nil
	case "/quit", "/exit", "quit", "exit":
		return false, nil
	case "/new":
		r.app.Reset(r.orch)
		fmt.Fprintln(r.out, SuccessStyle.Render("Started a new conversation."))
		return true, nil
	case "/history":
		fmt.Fprint(r.out, history.FormatList(r.app.History.Conversations()))
		if r.app.History.Len() == 0 {
			fmt.Fprintln(r.out)
		}
		return true, nil
	case "/help":
		fmt.Fprintln(r.out, "/new  /history  /quit")
		return true, nil
	}
	if strings.HasPrefix(input, "/") {
		return true, fmt.Errorf("unknown command %s (try /help)", input)
	}

	_, err := Exchange(r.orch, input, r.out)
	return true, err
}

// =============================================================================
// EXCHANGE
// =============================================================================

// Exchange submits text and drives the reply to completion, printing the
// reveal on out. It returns the finished exchange.
func Exchange(o *chat.Orchestrator, text string, out io.Writer) (chat.ExchangeDoneMsg, error) {
	cmd, err := o.Submit(text)
	if err != nil {
		return chat.ExchangeDoneMsg{}, err
	}

	p := &revealPrinter{orch: o, out: out}
	chat.Drive(o, cmd, p.update)
	return p.done, nil
}

// revealPrinter writes the revealed prefix as it grows.
type revealPrinter struct {
	orch    *chat.Orchestrator
	out     io.Writer
	started bool
	printed int
	done    chat.ExchangeDoneMsg
}

func (p *revealPrinter) update(msg tea.Msg) {
	switch msg := msg.(type) {
	case chat.CompletionMsg, chat.RevealTickMsg:
		msgs := p.orch.Messages()
		if len(msgs) == 0 || msgs[len(msgs)-1].IsUser {
			return
		}
		p.start()
		// The revealed text only ever grows by whole runes.
		if content := msgs[len(msgs)-1].Content; len(content) > p.printed {
			io.WriteString(p.out, content[p.printed:])
			p.printed = len(content)
		}
	case chat.ExchangeDoneMsg:
		p.start()
		fmt.Fprintln(p.out)
		p.done = msg
	}
}

func (p *revealPrinter) start() {
	if !p.started {
		io.WriteString(p.out, ReplyStyle.Render("pocket")+": ")
		p.started = true
	}
}

// =============================================================================
// COMMAND
// =============================================================================

// HandleChat runs the line-mode chat on the terminal.
func HandleChat(ctx context.Context, args Args, out io.Writer) error {
	a, err := app.New(args.AppOptions())
	if err != nil {
		return configError(err)
	}
	defer a.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(a.Config.DataDir(), lineHistoryFile)
	loadLineHistory(line, historyPath)
	defer saveLineHistory(line, historyPath)

	return NewREPL(ctx, a, line, out).Run(ctx)
}
