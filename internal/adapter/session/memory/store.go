// Package memory provides the default in-process session store.
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

// Store keeps sessions in a mutex-guarded map keyed by candidate identity.
// It is the single shared mutable structure between concurrent turn handlers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// New constructs an empty Store.
func New() *Store {
	return &Store{sessions: make(map[string]*domain.Session)}
}

// GetOrCreate returns the candidate's session, creating and storing one via
// create when none exists.
func (s *Store) GetOrCreate(_ domain.Context, candidateID string, create func() *domain.Session) (*domain.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[candidateID]; ok {
		return sess, false, nil
	}
	sess := create()
	s.sessions[candidateID] = sess
	return sess, true, nil
}

// Get returns the candidate's session or ErrNotFound.
func (s *Store) Get(_ domain.Context, candidateID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[candidateID]
	if !ok {
		return nil, fmt.Errorf("op=session.get: %w: candidate %s", domain.ErrNotFound, candidateID)
	}
	return sess, nil
}

// Save stores the session under its candidate identity. Sessions are held by
// pointer, so mutations made under the dispatcher's per-candidate lock are
// already visible; Save keeps the contract uniform with external stores.
func (s *Store) Save(_ domain.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.CandidateID] = sess
	return nil
}

// Delete removes the candidate's session.
func (s *Store) Delete(_ domain.Context, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, candidateID)
	return nil
}

// DeleteIdle removes sessions whose last update is older than the given
// duration and reports how many were removed.
func (s *Store) DeleteIdle(_ domain.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len reports the number of live sessions. Used by readiness and tests.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
