package session

import (
	"context"
	"fmt"
	"sync"

	"datanerd/internal/dataset"
	"datanerd/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent caps sandbox executions running at once across all
// sessions.
const DefaultMaxConcurrent = 4

// Manager opens and tracks sessions and meters execution concurrency across
// them. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	sem      *semaphore.Weighted
	log      *zap.Logger
}

// NewManager creates a manager allowing maxConcurrent simultaneous sandbox
// executions (DefaultMaxConcurrent when zero or negative).
func NewManager(maxConcurrent int64) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Manager{
		sessions: make(map[string]*Session),
		sem:      semaphore.NewWeighted(maxConcurrent),
		log:      logging.Get(logging.CategorySession),
	}
}

// Open parses CSV bytes into a frame and starts a fresh session around it.
func (m *Manager) Open(csvData []byte) (*Session, error) {
	frame, err := dataset.ReadCSV(csvData)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	s := newSession(frame)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Info("session opened",
		zap.String("session_id", s.ID),
		zap.Int("rows", frame.NumRows()),
		zap.Int("columns", frame.NumCols()))
	return s, nil
}

// OpenFrame starts a session around an already-built frame.
func (m *Manager) OpenFrame(frame *dataset.Frame) *Session {
	s := newSession(frame)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a session by ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close removes a session. Its turn log is dropped; durable history lives in
// the audit store.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// AcquireExecution blocks until an execution slot is free or ctx is done.
// Callers must release with ReleaseExecution.
func (m *Manager) AcquireExecution(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// ReleaseExecution returns an execution slot.
func (m *Manager) ReleaseExecution() {
	m.sem.Release(1)
}
