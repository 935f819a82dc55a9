package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultSessionTTL = 24 * 7 * time.Hour

// SessionStore persists the current session between process restarts.
// Load returns nil, nil when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Remove(ctx context.Context) error
}

// StorageKey mirrors the key the browser client uses: sb-<project ref>-auth-token.
func StorageKey(supabaseURL string) string {
	ref := "local"
	if u, err := url.Parse(supabaseURL); err == nil && u.Hostname() != "" {
		ref = strings.Split(u.Hostname(), ".")[0]
	}
	return fmt.Sprintf("sb-%s-auth-token", ref)
}

type MemorySessionStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Load(_ context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, nil
	}
	sessionCopy := *s.session
	return &sessionCopy, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *Session) error {
	if session == nil {
		return errors.New("nil session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionCopy := *session
	s.session = &sessionCopy
	return nil
}

func (s *MemorySessionStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	return nil
}

type RedisSessionStore struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

func NewRedisSessionStore(redisClient *redis.Client, key string, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		redisClient: redisClient,
		key:         key,
		ttl:         ttl,
	}
}

func (s *RedisSessionStore) Load(ctx context.Context) (*Session, error) {
	sessionBytes, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(sessionBytes, &session); err != nil {
		return nil, fmt.Errorf("unmarshal stored session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return errors.New("nil session")
	}
	sessionBytes, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redisClient.Set(ctx, s.key, string(sessionBytes), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Remove(ctx context.Context) error {
	if err := s.redisClient.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}
