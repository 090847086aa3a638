package consumer

import "context"

// SessionStore is the thin contract the consumer requires of an external
// keyed session store: get/set by session id, and get/set of the seed → sid
// index. Durability, expiry and eviction policy all belong to the store.
//
// Implementations must be concurrently safe and must return deep copies, so
// two requests never share a mutable Session. Get methods return
// ErrNotFound (possibly wrapped) for absent keys. No transactional
// guarantee is assumed: two Begin calls sharing a seed race on the seed
// index and the last writer wins.
type SessionStore interface {
	// GetSession returns the session stored under sid.
	GetSession(ctx context.Context, sid string) (*Session, error)

	// PutSession stores the session under sid, replacing any previous
	// value.
	PutSession(ctx context.Context, sid string, s *Session) error

	// GetSeed returns the session id the seed index points at.
	GetSeed(ctx context.Context, seed string) (string, error)

	// PutSeed points the seed index at sid, replacing any previous value.
	PutSeed(ctx context.Context, seed, sid string) error
}
