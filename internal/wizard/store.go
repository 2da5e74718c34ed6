package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired wizard sessions.
var ErrSessionNotFound = errors.New("wizard session not found")

// DefaultSessionTTL is how long an idle wizard session is kept.
const DefaultSessionTTL = 2 * time.Hour

// Store persists wizard sessions. Save refreshes the TTL.
type Store interface {
	Load(ctx context.Context, id string) (*State, error)
	Save(ctx context.Context, st *State) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions as JSON under "wizard:<id>".
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore uses client with the given idle TTL.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(id string) string {
	return "wizard:" + id
}

// Load fetches a session.
func (s *RedisStore) Load(ctx context.Context, id string) (*State, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard session: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode wizard session: %w", err)
	}
	return &st, nil
}

// Save stores a session and resets its expiry.
func (s *RedisStore) Save(ctx context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode wizard session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(st.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return fmt.Errorf("delete wizard session: %w", err)
	}
	return nil
}

// MemoryStore keeps sessions in process. Used when Redis is not configured.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemoryStore creates an in-process store with the given idle TTL.
// Expired sessions are swept every minute until ctx is cancelled.
func NewMemoryStore(ctx context.Context, ttl time.Duration) *MemoryStore {
	return newMemoryStore(ctx, ttl, time.Minute)
}

func newMemoryStore(ctx context.Context, ttl, sweepEvery time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]memoryEntry)}
	go s.sweep(ctx, sweepEvery)
	return s
}

func (s *MemoryStore) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.removeExpired(); n > 0 {
				slog.Debug("expired wizard sessions removed", "count", n)
			}
		}
	}
}

// removeExpired drops sessions that were not saved within the TTL.
func (s *MemoryStore) removeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.sessions {
		if !now.Before(e.expires) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Load fetches a session, dropping it if expired.
func (s *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok && !s.now().Before(e.expires) {
		delete(s.sessions, id)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	var st State
	if err := json.Unmarshal(e.data, &st); err != nil {
		return nil, fmt.Errorf("decode wizard session: %w", err)
	}
	return &st, nil
}

// Save stores a copy of st.
func (s *MemoryStore) Save(_ context.Context, st *State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode wizard session: %w", err)
	}
	s.mu.Lock()
	s.sessions[st.ID] = memoryEntry{data: data, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
