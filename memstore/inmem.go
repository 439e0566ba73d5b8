// Package memstore provides MemoryStore implementations: a process-local
// in-memory store and a SQLite-backed store for persistence across restarts.
package memstore

import (
	"context"
	"sync"

	"github.com/driftlabs/goalloop"
)

// InMem is a thread-safe, process-local MemoryStore. Sessions are deep-copied
// on both Save and Load so callers never alias stored state.
type InMem struct {
	mu       sync.RWMutex
	sessions map[string]*goalloop.ExecutionSession
}

// NewInMem creates an empty in-memory store.
func NewInMem() *InMem {
	return &InMem{sessions: make(map[string]*goalloop.ExecutionSession)}
}

// Save implements goalloop.MemoryStore.
func (s *InMem) Save(_ context.Context, session *goalloop.ExecutionSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// Load implements goalloop.MemoryStore.
func (s *InMem) Load(_ context.Context, sessionID string) (*goalloop.ExecutionSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, goalloop.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Len returns the number of stored sessions.
func (s *InMem) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ goalloop.MemoryStore = (*InMem)(nil)
