package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/robert-malhotra/h5view/internal/container"
)

// Manager creates sessions and looks them up by id.
type Manager struct {
	src      container.Source
	settings Settings
	log      *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a Manager whose sessions read through src.
func NewManager(src container.Source, settings Settings, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		src:      src,
		settings: settings,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a time-ordered id.
func (m *Manager) Create() (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("session id: %w", err)
	}
	s := New(id.String(), m.src, m.settings, m.log)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.log.Info("session created", "session", s.ID)
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Delete drops a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ForgetFile clears every session that has path open, so a deleted upload is
// not read again.
func (m *Manager) ForgetFile(path string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.sessions {
		if s.holds(path) {
			s.Clear()
		}
	}
}
