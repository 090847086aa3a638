package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eliasp/oidcrp/consumer"
)

const (
	sessionKeyPrefix = "session:"
	seedKeyPrefix    = "seed:"
)

// Redis is a SessionStore backed by a Redis (or Redis-compatible) server.
// Sessions are stored as JSON blobs under "session:<sid>" and the seed
// index under "seed:<seed>".
type Redis struct {
	client redis.UniversalClient

	// ttl, when non-zero, is applied to every write. Zero means entries
	// never expire; expiry policy is the deployment's choice.
	ttl time.Duration
}

var _ consumer.SessionStore = (*Redis)(nil)

// NewRedis creates a Redis-backed session store. A non-zero ttl expires
// every session and seed entry that long after its last write.
func NewRedis(client redis.UniversalClient, ttl time.Duration) (*Redis, error) {
	const op = "NewRedis"
	if client == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, consumer.ErrNilParameter)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

// GetSession returns the session stored under sid.
func (s *Redis) GetSession(ctx context.Context, sid string) (*consumer.Session, error) {
	const op = "Redis.GetSession"
	blob, err := s.client.Get(ctx, sessionKeyPrefix+sid).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: session %s: %w", op, sid, consumer.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: unable to read session %s: %w", op, sid, err)
	}
	var sess consumer.Session
	if err := json.Unmarshal(blob, &sess); err != nil {
		return nil, fmt.Errorf("%s: unable to decode session %s: %w", op, sid, err)
	}
	return &sess, nil
}

// PutSession stores the session under sid.
func (s *Redis) PutSession(ctx context.Context, sid string, sess *consumer.Session) error {
	const op = "Redis.PutSession"
	if sess == nil {
		return fmt.Errorf("%s: session is nil: %w", op, consumer.ErrNilParameter)
	}
	blob, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%s: unable to encode session %s: %w", op, sid, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sid, blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: unable to write session %s: %w", op, sid, err)
	}
	return nil
}

// GetSeed returns the session id the seed index points at.
func (s *Redis) GetSeed(ctx context.Context, seed string) (string, error) {
	const op = "Redis.GetSeed"
	sid, err := s.client.Get(ctx, seedKeyPrefix+seed).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%s: seed: %w", op, consumer.ErrNotFound)
		}
		return "", fmt.Errorf("%s: unable to read seed index: %w", op, err)
	}
	return sid, nil
}

// PutSeed points the seed index at sid.
func (s *Redis) PutSeed(ctx context.Context, seed, sid string) error {
	const op = "Redis.PutSeed"
	if err := s.client.Set(ctx, seedKeyPrefix+seed, sid, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: unable to write seed index: %w", op, err)
	}
	return nil
}
