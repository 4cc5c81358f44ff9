package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxTurns caps retained conversation history per session. Older turns
// are dropped on commit so history cannot grow without bound.
const DefaultMaxTurns = 40

// FunctionRecord captures one function invocation made while producing an
// assistant message.
type FunctionRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result,omitempty"`
}

// Message is one entry of a session's conversation history.
type Message struct {
	Role          string           `json:"role"`
	Content       string           `json:"content"`
	FunctionCalls []FunctionRecord `json:"function_calls,omitempty"`
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// MaxTurns bounds retained query/answer pairs.
	MaxTurns int
}

// Session owns the conversation history for one thread identifier. It is safe
// for concurrent access, but at most one turn may run against it at a time:
// the runner claims the session with TryBegin before streaming and releases
// it with End when the turn finishes.
//
// History is append-only and committed per completed turn. A failed or
// abandoned turn commits nothing, so it leaves the history exactly as it was
// before the turn began.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.RWMutex
	updated  time.Time
	messages []Message
	maxTurns int
	active   atomic.Bool
}

// NewSession creates an empty session for the given thread identifier.
func NewSession(id string, optFns ...func(o *SessionOptions)) *Session {
	opts := SessionOptions{MaxTurns: DefaultMaxTurns}

	for _, fn := range optFns {
		fn(&opts)
	}

	now := time.Now().UTC()
	return &Session{ID: id, Created: now, updated: now, maxTurns: opts.MaxTurns}
}

// TryBegin claims the session for a new turn. It reports false when another
// turn is already active, in which case the caller must reject the request
// before any streaming begins.
func (s *Session) TryBegin() bool { return s.active.CompareAndSwap(false, true) }

// End releases the session after a turn. Idempotent.
func (s *Session) End() { s.active.Store(false) }

// Active reports whether a turn currently holds the session.
func (s *Session) Active() bool { return s.active.Load() }

// History returns a defensive copy of the committed conversation history.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return msgs
}

// Len returns the number of committed messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Updated returns the time of the last commit.
func (s *Session) Updated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// CommitTurn appends a completed turn's query and answer, trimming history to
// the retention window. Called only after the capability succeeded.
func (s *Session) CommitTurn(query, answer string, calls []FunctionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages,
		Message{Role: "user", Content: query},
		Message{Role: "assistant", Content: answer, FunctionCalls: calls},
	)
	if max := s.maxTurns * 2; len(s.messages) > max {
		s.messages = append(s.messages[:0:0], s.messages[len(s.messages)-max:]...)
	}
	s.updated = time.Now().UTC()
}
