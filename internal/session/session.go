// Package session owns the per-conversation state: the loaded dataset and an
// append-only log of analysis turns. Turns within one session run strictly in
// order; concurrency across sessions is capped by the Manager.
package session

import (
	"sync"
	"time"

	"datanerd/internal/dataset"
	"datanerd/internal/result"

	"github.com/google/uuid"
)

// Turn records one question/answer exchange. Turns are immutable once
// appended; a failed turn is a turn like any other.
type Turn struct {
	ID       string         `json:"id"`
	Question string         `json:"question"`
	Code     string         `json:"code,omitempty"`
	Allowed  bool           `json:"allowed"`
	Reasons  []string       `json:"reasons,omitempty"`
	Result   *result.Result `json:"result"`
	At       time.Time      `json:"at"`
	Duration time.Duration  `json:"duration"`
}

// Session binds a dataset to its turn history. The dataset never changes for
// the lifetime of the session; answering a different dataset means opening a
// new session.
type Session struct {
	ID      string
	Created time.Time

	frame *dataset.Frame
	desc  dataset.Descriptor

	turnMu sync.Mutex // serializes whole turns
	mu     sync.Mutex // guards the log
	turns  []Turn
}

func newSession(frame *dataset.Frame) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		frame:   frame,
		desc:    frame.Describe(),
	}
}

// Frame returns the session's dataset.
func (s *Session) Frame() *dataset.Frame { return s.frame }

// Descriptor returns the dataset's schema description, computed once at open.
func (s *Session) Descriptor() dataset.Descriptor { return s.desc }

// BeginTurn blocks until no other turn is running in this session. Every
// BeginTurn must be paired with EndTurn.
func (s *Session) BeginTurn() { s.turnMu.Lock() }

// EndTurn releases the turn lock.
func (s *Session) EndTurn() { s.turnMu.Unlock() }

// Append adds a completed turn to the log.
func (s *Session) Append(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the full log in append order.
func (s *Session) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// History returns up to n of the most recent turns, oldest first. Prompt
// builders use it for the conversation window.
func (s *Session) History(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.turns) {
		n = len(s.turns)
	}
	out := make([]Turn, n)
	copy(out, s.turns[len(s.turns)-n:])
	return out
}

// Reset clears the turn log while keeping the dataset loaded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

// TurnCount reports the number of logged turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}
