// Package session holds the session storage port, its in-memory backend and
// the authorization gate used by every delivery surface.
package session

import (
	"context"
	"errors"
	"sync"

	"minitracker/internal/core"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// Store persists authenticated sessions. The "current" slot is what the CLI
// uses as its active login; the web server addresses sessions by id only.
type Store interface {
	Save(ctx context.Context, s *core.Session) error
	Get(ctx context.Context, id string) (*core.Session, error)
	Delete(ctx context.Context, id string) error
	Current(ctx context.Context) (*core.Session, error)
	SetCurrent(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]core.Session
	current  string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]core.Session)}
}

func (m *MemoryStore) Save(_ context.Context, s *core.Session) error {
	if !s.Valid() || s.ID == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	if m.current == id {
		m.current = ""
	}
	return nil
}

func (m *MemoryStore) Current(ctx context.Context) (*core.Session, error) {
	m.mu.RLock()
	id := m.current
	m.mu.RUnlock()
	if id == "" {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) SetCurrent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	m.current = id
	return nil
}
