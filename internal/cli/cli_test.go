// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pocket-tui/internal/app"
	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/sessions"
)

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"--verbose", "history", "show", "2", "--model", "m1", "--config=/tmp/x.toml", "--json=false"}, "verbose", "json")

	assert.True(t, p.BoolFlag("verbose"))
	assert.False(t, p.BoolFlag("json"))
	assert.True(t, p.HasFlag("json"))
	assert.Equal(t, "m1", p.Flag("model"))
	assert.Equal(t, "/tmp/x.toml", p.Flag("--config"))
	assert.Equal(t, "fallback", p.FlagOrDefault("missing", "fallback"))
	assert.Equal(t, 3, p.PositionalCount())
	assert.Equal(t, "history", p.Positional(0))
	assert.Equal(t, "2", p.Positional(2))
	assert.Equal(t, "", p.Positional(9))
	assert.Equal(t, []string{"show", "2"}, p.PositionalFrom(1))
	assert.Empty(t, p.PositionalFrom(7))
}

func TestArgParser_DoubleDash(t *testing.T) {
	p := NewArgParser([]string{"ask", "--", "--not-a-flag", "text"})
	assert.Equal(t, []string{"ask", "--not-a-flag", "text"}, p.PositionalFrom(0))
	assert.False(t, p.HasFlag("not-a-flag"))
}

func TestArgParser_UndeclaredFlagTakesValue(t *testing.T) {
	p := NewArgParser([]string{"--debug", "ask"})
	assert.Equal(t, "ask", p.Flag("debug"))
	assert.Equal(t, 0, p.PositionalCount())
}

func TestParseIndex(t *testing.T) {
	n, err := ParseIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"", "0", "-1", "two"} {
		_, err := ParseIndex(bad)
		var usage *UsageError
		assert.True(t, errors.As(err, &usage), bad)
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		b, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, b, s)
	}
	for _, s := range []string{"false", "no", "N", "0", "off"} {
		b, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, b, s)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}

// =============================================================================
// PARSE
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv []string
		cmd  Command
		sub  string
	}{
		{nil, CmdTUI, ""},
		{[]string{"tui"}, CmdTUI, ""},
		{[]string{"chat"}, CmdChat, ""},
		{[]string{"history"}, CmdHistory, "list"},
		{[]string{"history", "show", "2"}, CmdHistory, "show"},
		{[]string{"sessions"}, CmdSessions, "list"},
		{[]string{"session", "clear"}, CmdSessions, "clear"},
		{[]string{"config"}, CmdConfig, "show"},
		{[]string{"config", "init"}, CmdConfig, "init"},
		{[]string{"version"}, CmdVersion, ""},
		{[]string{"--version"}, CmdVersion, ""},
		{[]string{"help"}, CmdHelp, ""},
		{[]string{"-h"}, CmdHelp, ""},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.argv), func(t *testing.T) {
			cmd, args, err := Parse(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.sub, args.Subcommand)
		})
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args, err := Parse([]string{"--verbose", "--no-voice", "--model", "m2", "--config", "/tmp/p.toml", "--format", "json", "ask", "I", "feel", "anxious", "today"})
	require.NoError(t, err)
	assert.Equal(t, CmdAsk, cmd)
	assert.Equal(t, "I feel anxious today", args.Query)
	assert.True(t, args.Verbose)
	assert.True(t, args.NoVoice)
	assert.Equal(t, "m2", args.Model)
	assert.Equal(t, "/tmp/p.toml", args.ConfigPath)
	assert.Equal(t, "json", args.Format)

	opts := args.AppOptions()
	assert.Equal(t, app.Options{ConfigPath: "/tmp/p.toml", Model: "m2", NoVoice: true, Verbose: true}, opts)
}

func TestParse_Errors(t *testing.T) {
	for _, argv := range [][]string{
		{"ask"},
		{"ask", "  "},
		{"frobnicate"},
		{"--model"},
	} {
		_, _, err := Parse(argv)
		var usage *UsageError
		assert.True(t, errors.As(err, &usage), "%v", argv)
		assert.Equal(t, ExitUsageError, ExitCode(err))
	}
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "ask", CmdAsk.String())
	assert.Equal(t, "sessions", CmdSessions.String())
	assert.Equal(t, "unknown", Command(99).String())
}

func TestUsageIncludesKeys(t *testing.T) {
	u := Usage()
	assert.Contains(t, u, "pocket ask")
	assert.Contains(t, u, "ctrl+o")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitGeneralError, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitConfigError, ExitCode(configError(errors.New("bad file"))))
	assert.Equal(t, ExitConfigError, ExitCode(fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "x", Message: "y"}})))
	assert.Equal(t, ExitNotFoundError, ExitCode(&CommandError{Command: "history", Action: "show", Err: history.ErrConversationNotFound}))
	assert.Equal(t, ExitNotFoundError, ExitCode(&CommandError{Command: "sessions", Action: "show", Err: sessions.ErrSessionNotFound}))
}

func TestVersionString(t *testing.T) {
	assert.Contains(t, VersionString(), "pocket "+Version)
}

// =============================================================================
// FIXTURES
// =============================================================================

// writeConfig writes a config file rooted in a temp data dir.
func writeConfig(t *testing.T) (Args, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := fmt.Sprintf("[storage]\ndata_dir = %q\n\n[voice]\nenabled = false\n", dir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return Args{ConfigPath: path}, dir
}

func newTestApp(t *testing.T, reply string) *app.App {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, reply)
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Completion.Endpoint = srv.URL
	cfg.APIKey = "hf_test"
	cfg.Voice.Enabled = false
	cfg.Reveal.TickMs = 1

	a, err := app.New(app.Options{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

type fakeReader struct {
	lines   []string
	history []string
}

func (f *fakeReader) Prompt(string) (string, error) {
	if len(f.lines) == 0 {
		return "", io.EOF
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakeReader) AppendHistory(item string) {
	f.history = append(f.history, item)
}

// =============================================================================
// REPL AND ASK
// =============================================================================

func TestExchange_PrintsReveal(t *testing.T) {
	a := newTestApp(t, "Let us breathe together.")
	o := a.NewOrchestrator(context.Background())

	var out bytes.Buffer
	done, err := Exchange(o, "I feel anxious today", &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "pocket")
	assert.True(t, strings.HasSuffix(out.String(), ": Let us breathe together.\n"), out.String())
	assert.Equal(t, "I feel anxious today", done.UserText)
	assert.Equal(t, "Let us breathe together.", done.ReplyText)
	assert.Equal(t, 1, a.History.Len())
}

func TestExchange_EmptyMessage(t *testing.T) {
	a := newTestApp(t, "x")
	_, err := Exchange(a.NewOrchestrator(context.Background()), "   ", io.Discard)
	assert.Error(t, err)
}

func TestREPL_Session(t *testing.T) {
	a := newTestApp(t, "I hear you.")
	reader := &fakeReader{lines: []string{"", "hello", "/history", "/bogus", "/new", "again", "/quit", "never read"}}

	var out bytes.Buffer
	repl := NewREPL(context.Background(), a, reader, &out)
	require.NoError(t, repl.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "pocket: I hear you.")
	assert.Contains(t, text, "unknown command /bogus")
	assert.Contains(t, text, "Started a new conversation.")
	assert.Equal(t, []string{"never read"}, reader.lines)
	assert.Equal(t, []string{"hello", "/history", "/bogus", "/new", "again", "/quit"}, reader.history)

	assert.Equal(t, 2, a.History.Len())
	// One archive from /new and one on exit.
	require.NotNil(t, a.Sessions)
	assert.Equal(t, 2, a.Sessions.Len())
	// /new started a fresh completion context.
	assert.Len(t, a.Client.Turns(), 2)
}

func TestREPL_EOFExits(t *testing.T) {
	a := newTestApp(t, "x")
	var out bytes.Buffer
	require.NoError(t, NewREPL(context.Background(), a, &fakeReader{}, &out).Run(context.Background()))
	assert.Equal(t, 0, a.Sessions.Len())
}

func TestREPL_CancelledContext(t *testing.T) {
	a := newTestApp(t, "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &fakeReader{lines: []string{"hello"}}
	require.NoError(t, NewREPL(ctx, a, reader, io.Discard).Run(ctx))
	assert.Equal(t, []string{"hello"}, reader.lines)
}

func TestAsk_JSON(t *testing.T) {
	a := newTestApp(t, "Take a slow breath.")
	var out bytes.Buffer
	result, err := Ask(context.Background(), a, "I feel anxious today", true, &out)
	require.NoError(t, err)

	var decoded AskResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, result, decoded)
	assert.Equal(t, "Take a slow breath.", decoded.Reply)
	assert.Equal(t, a.Client.Model(), decoded.Model)
	assert.True(t, decoded.Spoken)
}

func TestAsk_UnavailableIsNotSpoken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Completion.Endpoint = srv.URL
	cfg.APIKey = "hf_test"
	cfg.Voice.Enabled = false
	cfg.Reveal.TickMs = 1
	a, err := app.New(app.Options{Config: cfg})
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	result, err := Ask(context.Background(), a, "hello", false, &out)
	require.NoError(t, err)
	assert.Contains(t, result.Reply, "unavailable")
	assert.False(t, result.Spoken)
	assert.Contains(t, out.String(), "unavailable")
}

type slowSpeaker struct{ stopped chan struct{} }

func (s *slowSpeaker) Speak(string, func()) {}
func (s *slowSpeaker) Stop() { close(s.stopped) }
func (s *slowSpeaker) IsSpeaking() bool { return true }

func TestWaitForSpeech_StopsOnCancel(t *testing.T) {
	sp := &slowSpeaker{stopped: make(chan struct{})}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	waitForSpeech(ctx, sp)
	select {
	case <-sp.stopped:
	default:
		t.Fatal("speech was not stopped")
	}
}

// =============================================================================
// HISTORY, SESSIONS, CONFIG
// =============================================================================

func TestHandleHistory(t *testing.T) {
	args, dir := writeConfig(t)
	rec := history.NewRecorder(filepath.Join(dir, "conversations.json"), zerolog.Nop())
	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	rec.Add(history.TitleFor(at), history.Exchange("first question", "first answer", at))
	rec.Add(history.TitleFor(at), history.Exchange("second question", "second answer", at))

	var out bytes.Buffer
	args.Subcommand = "list"
	require.NoError(t, HandleHistory(args, &out))
	assert.Contains(t, out.String(), "second question")

	out.Reset()
	args.Subcommand, args.Raw = "show", []string{"2"}
	require.NoError(t, HandleHistory(args, &out))
	assert.Contains(t, out.String(), "first answer")
	assert.Contains(t, out.String(), "Pocket (15:09):")

	out.Reset()
	args.Subcommand, args.Raw = "json", nil
	require.NoError(t, HandleHistory(args, &out))
	var exported []history.Conversation
	require.NoError(t, json.Unmarshal(out.Bytes(), &exported))
	assert.Len(t, exported, 2)

	out.Reset()
	exportDir := t.TempDir()
	args.Subcommand, args.Raw, args.OutDir = "export", []string{"1"}, exportDir
	require.NoError(t, HandleHistory(args, &out))
	files, err := filepath.Glob(filepath.Join(exportDir, "conversation_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, out.String(), files[0])

	args.Format = "html"
	assert.Equal(t, ExitUsageError, ExitCode(HandleHistory(args, io.Discard)))
	args.Format = ""

	args.Subcommand, args.Raw = "show", []string{"9"}
	err = HandleHistory(args, io.Discard)
	assert.Equal(t, ExitNotFoundError, ExitCode(err))

	args.Subcommand = "nope"
	assert.Equal(t, ExitUsageError, ExitCode(HandleHistory(args, io.Discard)))
}

func TestHandleHistory_Empty(t *testing.T) {
	args, _ := writeConfig(t)
	args.Subcommand = "list"
	var out bytes.Buffer
	require.NoError(t, HandleHistory(args, &out))
	assert.Equal(t, "No conversations yet.\n", out.String())
}

func TestHandleSessions(t *testing.T) {
	args, dir := writeConfig(t)
	store, err := sessions.Open(filepath.Join(dir, "sessions.db"), zerolog.Nop())
	require.NoError(t, err)
	at := time.Date(2025, 3, 14, 15, 9, 0, 0, time.UTC)
	require.NoError(t, store.Add(sessions.NewSession("Older", []sessions.Message{
		sessions.NewMessage(sessions.RoleUser, "old question", at),
		sessions.NewMessage(sessions.RoleAssistant, "old answer", at),
	}, at)))
	require.NoError(t, store.Add(sessions.NewSession("Newer", []sessions.Message{
		sessions.NewMessage(sessions.RoleUser, "new question", at),
	}, at)))
	require.NoError(t, store.Close())

	var out bytes.Buffer
	args.Subcommand = "list"
	require.NoError(t, HandleSessions(args, &out))
	assert.Contains(t, out.String(), "Newer")
	assert.Contains(t, out.String(), "old question")

	out.Reset()
	args.Subcommand, args.Raw = "show", []string{"2"}
	require.NoError(t, HandleSessions(args, &out))
	assert.Contains(t, out.String(), "Pocket (15:09):\nold answer")

	out.Reset()
	args.Subcommand, args.Raw = "delete", []string{"1"}
	require.NoError(t, HandleSessions(args, &out))
	assert.Contains(t, out.String(), "Newer")

	out.Reset()
	args.Subcommand, args.Raw = "clear", nil
	require.NoError(t, HandleSessions(args, &out))
	assert.Contains(t, out.String(), "1 session(s)")

	out.Reset()
	args.Subcommand = "list"
	require.NoError(t, HandleSessions(args, &out))
	assert.Equal(t, "No archived sessions.\n", out.String())

	args.Subcommand, args.Raw = "show", []string{"1"}
	assert.Equal(t, ExitNotFoundError, ExitCode(HandleSessions(args, io.Discard)))
}

func TestHandleConfig(t *testing.T) {
	args, dir := writeConfig(t)

	var out bytes.Buffer
	args.Subcommand = "show"
	require.NoError(t, HandleConfig(args, &out))
	assert.Contains(t, out.String(), dir)

	out.Reset()
	args.JSON = true
	require.NoError(t, HandleConfig(args, &out))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Contains(t, decoded, "completion")
	args.JSON = false

	out.Reset()
	args.Subcommand = "path"
	require.NoError(t, HandleConfig(args, &out))
	assert.Equal(t, args.ConfigPath+"\n", out.String())

	args.Subcommand = "init"
	assert.Equal(t, ExitUsageError, ExitCode(HandleConfig(args, io.Discard)), "refuses to overwrite")

	args.Force = true
	require.NoError(t, HandleConfig(args, io.Discard))
	cfg, err := config.LoadFromPath(args.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Completion.Model, cfg.Completion.Model)
}

func TestHandleConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[completion]\nmax_tokens = -5\n"), 0600))

	err := HandleConfig(Args{ConfigPath: path, Subcommand: "show"}, io.Discard)
	assert.Equal(t, ExitConfigError, ExitCode(err))
}
