// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/pocket-tui/internal/util"
)

// Role labels used in persisted messages.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// TitleLayout formats conversation titles from the completion time.
const TitleLayout = "Jan 2, 2006 at 3:04 PM"

// =============================================================================
// PERSISTED TYPES
// =============================================================================

// Message is one persisted message. Immutable once created.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one committed exchange.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role, content string, at time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: at,
	}
}

// Exchange builds the two-message record of one user utterance and its reply.
func Exchange(userText, aiText string, at time.Time) []Message {
	return []Message{
		NewMessage(RoleUser, userText, at),
		NewMessage(RoleAI, aiText, at),
	}
}

// TitleFor returns the conversation title for a completion time.
func TitleFor(at time.Time) string {
	return at.Format(TitleLayout)
}

// Preview returns the first user message, truncated for list views.
func (c Conversation) Preview() string {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return util.TruncateRunes(util.SingleLine(msg.Content), 80)
		}
	}
	return ""
}

// ErrConversationNotFound is returned when a conversation does not exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ConversationError represents a history lookup error.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// RECORDER
// =============================================================================

// Recorder is the process-wide store of committed conversations.
type Recorder struct {
	path   string
	logger zerolog.Logger

	mu            sync.RWMutex
	conversations []Conversation
	now           func() time.Time
}

// NewRecorder creates a recorder backed by the document at path. The
// collection starts empty until Load is called.
func NewRecorder(path string, logger zerolog.Logger) *Recorder {
	return &Recorder{
		path:   path,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
}

// Path returns the backing document path.
func (r *Recorder) Path() string {
	return r.path
}

// Load replaces the in-memory collection with the document on disk. A
// missing or corrupt document leaves the collection empty.
func (r *Recorder) Load() {
	conversations, err := readDocument(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Debug().Str("path", r.path).Msg("no history file yet")
		} else {
			r.logger.Error().Err(err).Str("path", r.path).Msg("failed to load history")
		}
		conversations = nil
	}

	r.mu.Lock()
	r.conversations = conversations
	r.mu.Unlock()
}

// Add inserts a conversation at the front and rewrites the document. Write
// failures are logged; the in-memory collection keeps the entry.
func (r *Recorder) Add(title string, messages []Message) Conversation {
	conv := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  append([]Message(nil), messages...),
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.conversations = append([]Conversation{conv}, r.conversations...)
	snapshot := append([]Conversation(nil), r.conversations...)
	r.mu.Unlock()

	if err := writeDocument(r.path, snapshot); err != nil {
		r.logger.Error().Err(err).Str("path", r.path).Msg("failed to save history")
	} else {
		r.logger.Debug().Str("id", conv.ID).Int("total", len(snapshot)).Msg("conversation recorded")
	}
	return conv
}

// Conversations returns a copy of the collection, most recent first.
func (r *Recorder) Conversations() []Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Conversation(nil), r.conversations...)
}

// Len returns the number of committed conversations.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}

// Get returns the conversation with the given ID.
func (r *Recorder) Get(id string) (Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.conversations {
		if conv.ID == id {
			return conv, nil
		}
	}
	return Conversation{}, ErrConversationNotFound
}

// At returns the conversation at a 1-based position in the list.
func (r *Recorder) At(index int) (Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 1 || index > len(r.conversations) {
		return Conversation{}, ErrConversationNotFound
	}
	return r.conversations[index-1], nil
}

// =============================================================================
// DOCUMENT I/O
// =============================================================================

func readDocument(path string) ([]Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var conversations []Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return conversations, nil
}

// writeDocument serializes the full collection. The file is replaced
// atomically so a crash never leaves a half-written document.
func writeDocument(path string, conversations []Conversation) error {
	if conversations == nil {
		conversations = []Conversation{}
	}
	data, err := json.MarshalIndent(conversations, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return util.AtomicWriteFile(path, data, 0600)
}
