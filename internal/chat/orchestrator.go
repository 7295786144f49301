// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/pocket-tui/internal/history"
	"github.com/jeranaias/pocket-tui/internal/voice"
)

// DefaultRevealInterval is the delay between revealed characters.
const DefaultRevealInterval = 30 * time.Millisecond

// Errors returned by Submit.
var (
	// ErrEmptyMessage indicates the submitted text was blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy indicates an exchange is already in flight.
	ErrBusy = errors.New("an exchange is already in progress")
)

// =============================================================================
// STATE
// =============================================================================

// State is the orchestrator's exchange state.
type State int

const (
	// Idle accepts a new submission.
	Idle State = iota
	// AwaitingCompletion waits for the remote reply.
	AwaitingCompletion
	// Revealing discloses the reply one character per tick.
	Revealing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingCompletion:
		return "awaiting-completion"
	case Revealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Completer turns a user utterance into reply text. It never fails.
type Completer interface {
	Send(ctx context.Context, userMessage string) string
}

// Recorder commits a finished exchange.
type Recorder interface {
	Add(title string, messages []history.Message) history.Conversation
}

// TickFunc schedules msg after d.
type TickFunc func(d time.Duration, msg tea.Msg) tea.Cmd

// DefaultTick schedules with tea.Tick.
func DefaultTick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Options configures an Orchestrator.
type Options struct {
	Completer Completer
	Recorder  Recorder
	Speaker   voice.Speaker
	Logger    zerolog.Logger

	// Context bounds network calls; defaults to context.Background().
	Context context.Context

	// Interval between revealed characters.
	Interval time.Duration

	// Tick and Now are replaceable in tests.
	Tick TickFunc
	Now  func() time.Time
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator coordinates one exchange at a time. It is not safe for
// concurrent use; all calls come from the owning event loop.
type Orchestrator struct {
	completer Completer
	recorder  Recorder
	speaker   voice.Speaker
	logger    zerolog.Logger
	ctx       context.Context
	interval  time.Duration
	tick      TickFunc
	now       func() time.Time

	state    State
	loading  bool
	epoch    uint64
	messages []Message

	// Current exchange.
	userText string
	reply    []rune
	revealed int
}

// New creates an orchestrator in the Idle state.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		completer: opts.Completer,
		recorder:  opts.Recorder,
		speaker:   opts.Speaker,
		logger:    opts.Logger.With().Str("component", "chat").Logger(),
		ctx:       opts.Context,
		interval:  opts.Interval,
		tick:      opts.Tick,
		now:       opts.Now,
	}
	if o.speaker == nil {
		o.speaker = voice.Silent{}
	}
	if o.ctx == nil {
		o.ctx = context.Background()
	}
	if o.interval <= 0 {
		o.interval = DefaultRevealInterval
	}
	if o.tick == nil {
		o.tick = DefaultTick
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Loading reports whether a reply is being awaited.
func (o *Orchestrator) Loading() bool { return o.loading }

// Epoch returns the current epoch.
func (o *Orchestrator) Epoch() uint64 { return o.epoch }

// Messages returns a copy of the message list.
func (o *Orchestrator) Messages() []Message {
	return append([]Message(nil), o.messages...)
}

// Progress returns revealed and total characters of the current reply.
func (o *Orchestrator) Progress() (revealed, total int) {
	return o.revealed, len(o.reply)
}

// Submit starts an exchange. The returned command performs the network call
// and yields a CompletionMsg.
func (o *Orchestrator) Submit(text string) (tea.Cmd, error) {
	// UNICODE: NFC so composed and decomposed input reveal identically.
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if o.state != Idle {
		return nil, ErrBusy
	}

	o.messages = append(o.messages, Message{
		ID:        uuid.NewString(),
		Content:   text,
		IsUser:    true,
		Timestamp: o.now(),
	})
	o.userText = text
	o.loading = true
	o.state = AwaitingCompletion

	epoch, ctx, completer := o.epoch, o.ctx, o.completer
	o.logger.Debug().Uint64("epoch", epoch).Int("chars", len(text)).Msg("exchange submitted")

	return func() tea.Msg {
		return CompletionMsg{Epoch: epoch, Text: completer.Send(ctx, text)}
	}, nil
}

// Update applies a loop message and returns the next command, if any.
// Messages from an earlier epoch are ignored.
func (o *Orchestrator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CompletionMsg:
		if msg.Epoch != o.epoch || o.state != AwaitingCompletion {
			o.logger.Debug().Uint64("epoch", msg.Epoch).Msg("dropping stale completion")
			return nil
		}
		return o.beginReveal(msg.Text)

	case RevealTickMsg:
		if msg.Epoch != o.epoch || o.state != Revealing {
			return nil
		}
		return o.revealNext()
	}
	return nil
}

func (o *Orchestrator) beginReveal(text string) tea.Cmd {
	o.loading = false
	o.state = Revealing
	o.reply = []rune(text)
	o.revealed = 0
	o.messages = append(o.messages, Message{
		ID:        uuid.NewString(),
		IsUser:    false,
		Timestamp: o.now(),
	})

	if len(o.reply) == 0 {
		return o.finish()
	}
	return o.tick(o.interval, RevealTickMsg{Epoch: o.epoch})
}

func (o *Orchestrator) revealNext() tea.Cmd {
	o.revealed++
	last := len(o.messages) - 1
	o.messages[last].Content = string(o.reply[:o.revealed])

	if o.revealed < len(o.reply) {
		return o.tick(o.interval, RevealTickMsg{Epoch: o.epoch})
	}
	return o.finish()
}

// finish records the exchange, then speaks it, then returns to Idle.
func (o *Orchestrator) finish() tea.Cmd {
	userText, replyText := o.userText, string(o.reply)
	now := o.now()

	if o.recorder != nil {
		o.recorder.Add(history.TitleFor(now), history.Exchange(userText, replyText, now))
	}

	spoken := false
	if ShouldSpeak(replyText) {
		o.speaker.Speak(replyText, nil)
		spoken = true
	}

	o.state = Idle
	o.userText = ""
	o.reply = nil
	o.revealed = 0

	done := ExchangeDoneMsg{UserText: userText, ReplyText: replyText, Spoken: spoken}
	return func() tea.Msg { return done }
}

// ShouldSpeak reports whether a reply is read aloud. Fallback apologies
// mention "unavailable" and are skipped.
func ShouldSpeak(text string) bool {
	return strings.TrimSpace(text) != "" && !strings.Contains(strings.ToLower(text), "unavailable")
}

// Clear empties the message list and abandons any exchange in progress.
func (o *Orchestrator) Clear() {
	o.epoch++
	o.messages = nil
	o.loading = false
	o.state = Idle
	o.userText = ""
	o.reply = nil
	o.revealed = 0
	o.speaker.Stop()
	o.logger.Debug().Uint64("epoch", o.epoch).Msg("messages cleared")
}
