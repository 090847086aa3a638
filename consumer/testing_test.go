package consumer

import (
	"context"
	"fmt"
	"sync"
)

// testStore is a minimal in-process SessionStore for tests in this
// package. The store package provides the real backends; it can't be used
// here without an import cycle.
type testStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	seeds    map[string]string
}

var _ SessionStore = (*testStore)(nil)

func newTestStore() *testStore {
	return &testStore{
		sessions: map[string]*Session{},
		seeds:    map[string]string{},
	}
}

func (s *testStore) GetSession(_ context.Context, sid string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, fmt.Errorf("testStore: session %s: %w", sid, ErrNotFound)
	}
	return sess.Clone(), nil
}

func (s *testStore) PutSession(_ context.Context, sid string, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = sess.Clone()
	return nil
}

func (s *testStore) GetSeed(_ context.Context, seed string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sid, ok := s.seeds[seed]
	if !ok {
		return "", fmt.Errorf("testStore: seed: %w", ErrNotFound)
	}
	return sid, nil
}

func (s *testStore) PutSeed(_ context.Context, seed, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seeds[seed] = sid
	return nil
}
