package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTokenKey is the well-known storage key for the bearer token.
const DefaultTokenKey = "token"

// TokenStore persists the bearer token between process restarts and requests.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// RedisTokenStore keeps one token string under a single Redis key.
type RedisTokenStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisTokenStore builds a store writing to key with the given expiry (0 keeps it forever).
func NewRedisTokenStore(client *redis.Client, key string, ttl time.Duration) *RedisTokenStore {
	return &RedisTokenStore{client: client, key: key, ttl: ttl}
}

// TokenKey composes the Redis key for a browser session.
func TokenKey(name, browserSessionID string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultTokenKey
	}
	return "slooze:" + name + ":" + browserSessionID
}

// Load returns the stored token or "" when none is stored.
func (s *RedisTokenStore) Load(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("session: load token: %w", err)
	}
	return token, nil
}

// Save stores token.
func (s *RedisTokenStore) Save(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, s.key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save token: %w", err)
	}
	return nil
}

// Clear removes the stored token.
func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("session: clear token: %w", err)
	}
	return nil
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore returns a store pre-seeded with token.
func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *MemoryTokenStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

var (
	_ TokenStore = (*RedisTokenStore)(nil)
	_ TokenStore = (*MemoryTokenStore)(nil)
)
