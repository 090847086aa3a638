package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/eliasp/oidcrp/consumer"
)

// InMem is an in-memory SessionStore. It is concurrently safe and hands
// out deep copies, so callers never share a mutable Session. Entries live
// for the life of the store; there is no expiry.
type InMem struct {
	mu       sync.RWMutex
	sessions map[string]*consumer.Session
	seeds    map[string]string
}

var _ consumer.SessionStore = (*InMem)(nil)

// NewInMem creates an empty in-memory session store.
func NewInMem() *InMem {
	return &InMem{
		sessions: map[string]*consumer.Session{},
		seeds:    map[string]string{},
	}
}

// GetSession returns a copy of the session stored under sid.
func (s *InMem) GetSession(_ context.Context, sid string) (*consumer.Session, error) {
	const op = "InMem.GetSession"
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("%s: session %s: %w", op, sid, consumer.ErrNotFound)
	}
	return sess.Clone(), nil
}

// PutSession stores a copy of the session under sid.
func (s *InMem) PutSession(_ context.Context, sid string, sess *consumer.Session) error {
	const op = "InMem.PutSession"
	if sess == nil {
		return fmt.Errorf("%s: session is nil: %w", op, consumer.ErrNilParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = sess.Clone()
	return nil
}

// GetSeed returns the session id the seed index points at.
func (s *InMem) GetSeed(_ context.Context, seed string) (string, error) {
	const op = "InMem.GetSeed"
	s.mu.RLock()
	defer s.mu.RUnlock()
	sid, ok := s.seeds[seed]
	if !ok {
		return "", fmt.Errorf("%s: seed: %w", op, consumer.ErrNotFound)
	}
	return sid, nil
}

// PutSeed points the seed index at sid.
func (s *InMem) PutSeed(_ context.Context, seed, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds[seed] = sid
	return nil
}
