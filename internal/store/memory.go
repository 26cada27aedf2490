package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/AlemzhanJ/chooseApp/internal/game"
)

// Memory keeps sessions in process. It stores and hands out copies only.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*game.Session)}
}

func (m *Memory) Create(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	s.Version = 1
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.sessions[id]
	if s == nil {
		return nil, fmt.Errorf("%w: %s", game.ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *Memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.sessions[s.ID]
	if cur == nil {
		return fmt.Errorf("%w: %s", game.ErrNotFound, s.ID)
	}
	if cur.Version != s.Version {
		return fmt.Errorf("%w: have version %d, stored %d", game.ErrConflict, s.Version, cur.Version)
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
