// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sessions

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SessionsKey is the key holding the session list.
const SessionsKey = "ConversationSessions"

// Role labels used in session messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// =============================================================================
// SESSION TYPES
// =============================================================================

// Message is one message of an archived session.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is an archived chat session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSession creates a session with a fresh ID.
func NewSession(title string, messages []Message, createdAt time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  messages,
		CreatedAt: createdAt,
	}
}

// NewMessage creates a session message with a fresh ID.
func NewMessage(role, content string, at time.Time) Message {
	return Message{ID: uuid.NewString(), Role: role, Content: content, Timestamp: at}
}

// ErrSessionNotFound is returned when a session does not exist.
var ErrSessionNotFound = &SessionError{Message: "session not found"}

// SessionError represents a session lookup error.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// STORE
// =============================================================================

// Store is the SQLite-backed session cache.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	mu       sync.Mutex
	sessions []Session
}

// Open opens (creating if needed) the session database at path and loads
// the session list. A corrupt list loads as empty.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "sessions").Logger(),
	}
	s.load()
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) load() {
	var raw []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", SessionsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read sessions")
		return
	}

	var sessions []Session
	if err := json.Unmarshal(raw, &sessions); err != nil {
		s.logger.Error().Err(err).Msg("session list is corrupt, starting empty")
		return
	}
	s.sessions = sessions
}

// persistLocked writes the full list. Caller holds s.mu.
func (s *Store) persistLocked() error {
	list := s.sessions
	if list == nil {
		list = []Session{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, SessionsKey, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

// Sessions returns a copy of the session list, most recent first.
func (s *Store) Sessions() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Session(nil), s.sessions...)
}

// Len returns the number of archived sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// At returns the session at a 1-based position in the list.
func (s *Store) At(index int) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 1 || index > len(s.sessions) {
		return Session{}, ErrSessionNotFound
	}
	return s.sessions[index-1], nil
}

// Add inserts a session at the front and persists the list.
func (s *Store) Add(session Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append([]Session{session}, s.sessions...)
	return s.persistLocked()
}

// Remove deletes the session with the given ID and persists the list.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, session := range s.sessions {
		if session.ID == id {
			s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
			return s.persistLocked()
		}
	}
	return ErrSessionNotFound
}

// Clear removes every session and persists the empty list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	return s.persistLocked()
}
