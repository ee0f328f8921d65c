package nlquery

import (
	"sync"

	"querygate/internal/domain"
)

// Session holds per-principal pipeline state: the single pending-action
// slot. One session exists per logged-in principal; its mutex serializes
// instruction processing so a session never pipelines two instructions.
type Session struct {
	principal domain.Principal

	mu      sync.Mutex
	pending *domain.PendingAction
}

// Principal returns the session's authenticated principal.
func (s *Session) Principal() domain.Principal { return s.principal }

// SessionManager hands out one Session per principal. Sessions are
// independent and may run concurrently.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Get returns the principal's session, creating it on first use.
func (m *SessionManager) Get(p domain.Principal) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[p.ID]; ok {
		return s
	}
	s := &Session{principal: p}
	m.sessions[p.ID] = s
	return s
}

// Drop removes a principal's session, discarding any pending action.
func (m *SessionManager) Drop(principalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, principalID)
}
