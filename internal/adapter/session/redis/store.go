// Package redis provides a Redis-backed session store for deployments where
// turn handling is spread across replicas.
package redis

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
)

const keyPrefix = "interview:session:"

// Store serializes sessions as JSON under a per-candidate key with a TTL.
// The TTL doubles as the idle-session expiry: every Save refreshes it, so a
// candidate who goes silent has their session dropped by Redis itself.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// New constructs a Store. ttl bounds session idleness.
func New(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(candidateID string) string { return keyPrefix + candidateID }

// GetOrCreate returns the candidate's session or stores a fresh one. SetNX
// keeps two racing replicas from both creating a session for one candidate.
func (s *Store) GetOrCreate(ctx domain.Context, candidateID string, create func() *domain.Session) (*domain.Session, bool, error) {
	sess, err := s.Get(ctx, candidateID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}
	fresh := create()
	b, err := json.Marshal(fresh)
	if err != nil {
		return nil, false, fmt.Errorf("op=session.create: %w", err)
	}
	set, err := s.client.SetNX(ctx, key(candidateID), b, s.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("op=session.create: %w", err)
	}
	if !set {
		// Lost the race; the winner's session is authoritative.
		sess, err := s.Get(ctx, candidateID)
		return sess, false, err
	}
	return fresh, true, nil
}

// Get loads and decodes the candidate's session.
func (s *Store) Get(ctx domain.Context, candidateID string) (*domain.Session, error) {
	b, err := s.client.Get(ctx, key(candidateID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("op=session.get: %w: candidate %s", domain.ErrNotFound, candidateID)
	}
	if err != nil {
		return nil, fmt.Errorf("op=session.get: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, fmt.Errorf("op=session.get: %w: %v", domain.ErrSchemaInvalid, err)
	}
	return &sess, nil
}

// Save writes the session back and refreshes the idle TTL.
func (s *Store) Save(ctx domain.Context, sess *domain.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("op=session.save: %w", err)
	}
	if err := s.client.Set(ctx, key(sess.CandidateID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("op=session.save: %w", err)
	}
	return nil
}

// Delete removes the candidate's session.
func (s *Store) Delete(ctx domain.Context, candidateID string) error {
	if err := s.client.Del(ctx, key(candidateID)).Err(); err != nil {
		return fmt.Errorf("op=session.delete: %w", err)
	}
	return nil
}

// DeleteIdle is a no-op: the per-key TTL already expires idle sessions.
func (s *Store) DeleteIdle(_ domain.Context, _ time.Duration) (int, error) {
	return 0, nil
}

// Ping reports whether Redis is reachable; used by readiness checks.
func (s *Store) Ping(ctx domain.Context) error {
	return s.client.Ping(ctx).Err()
}
