package booking

import (
	"sync"
	"time"

	"github.com/databayt/mkan-sub001/internal/models"
	"github.com/google/uuid"
)

// Manager keeps the live booking sessions of the process, keyed by a random
// id. Sessions are held in memory only.
type Manager struct {
	gateway Gateway
	opts    []Option
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions share gateway and opts
func NewManager(gateway Gateway, opts ...Option) *Manager {
	return &Manager{
		gateway:  gateway,
		opts:     opts,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session on trip and registers it
func (m *Manager) Create(trip models.Trip, seats []models.Seat) (string, *Session) {
	session := NewSession(m.gateway, m.opts...)
	session.startTrip(trip, seats)

	id := uuid.New().String()
	m.mu.Lock()
	m.sessions[id] = session
	m.mu.Unlock()
	return id, session
}

// Get returns a registered session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete drops a session. Sessions with a running submission are kept.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Loading() {
		return ErrSubmissionInProgress
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of registered sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many were
// removed
func (m *Manager) Sweep(maxIdle time.Duration) int {
	cutoff := m.now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if session.Loading() || !session.LastActive().Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		removed++
	}
	return removed
}
