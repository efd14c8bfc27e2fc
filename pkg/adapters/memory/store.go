// Package memory provides in-memory implementations of the session and
// flow stores. They are the default for tests and single-process embeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/parleyflow/parley/pkg/domain"
)

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Session
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[string]*domain.Session),
	}
}

// Save stores a deep copy of the session.
func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	cp := sess.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = cp
	return nil
}

// Get returns a deep copy so callers can not mutate stored state through
// the pointer.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns all session IDs in deterministic order.
func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
