package store

import (
	"context"
	"sync"

	"github.com/bifrotek/voicebridge/internal/model/session"
)

// Memory is the in-process Store used when Redis is not configured or
// unreachable. It is correct for a single worker process only; workers
// do not share memory, so cross-worker webhook delivery requires the
// Redis store.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
	queues   map[string][]session.Message
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]session.Session),
		queues:   make(map[string][]session.Message),
	}
}

func (m *Memory) SaveSession(_ context.Context, s session.Session) error {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetSession(_ context.Context, sessionID string) (session.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok, nil
}

func (m *Memory) DeleteSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	delete(m.queues, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) ListSessionIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *Memory) AppendMessage(_ context.Context, sessionID string, msg session.Message) error {
	m.mu.Lock()
	m.queues[sessionID] = append(m.queues[sessionID], msg)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DrainMessages(_ context.Context, sessionID string) ([]session.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queued := m.queues[sessionID]
	if len(queued) == 0 {
		return nil, nil
	}
	delete(m.queues, sessionID)
	return queued, nil
}

// Ping always succeeds; process memory is never unreachable.
func (m *Memory) Ping(_ context.Context) error {
	return nil
}
