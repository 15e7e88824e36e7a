package store

import (
	"context"
	"sync"

	"familygate/internal/identity/models"
	"familygate/pkg/domain"
)

// Memory is the in-process session store used by tests and single-node
// deployments without Redis.
type Memory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*models.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[domain.SessionID]*models.Session)}
}

func (m *Memory) Save(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.ID] = &cp
	return nil
}

func (m *Memory) Find(_ context.Context, id domain.SessionID) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *Memory) Delete(_ context.Context, id domain.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
