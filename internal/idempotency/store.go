package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "idempotency:"

// Store maps caller-supplied idempotency keys to job ids within a time
// window.
type Store interface {
	Lookup(ctx context.Context, key string) (string, error)
	Remember(ctx context.Context, key, jobID string, ttl time.Duration) error
}

// RedisStore keeps idempotency keys in Redis with a TTL, so deduplication
// works across worker processes.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Lookup returns the job id remembered for the key, or empty when the key is
// unknown or expired.
func (s *RedisStore) Lookup(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup idempotency key: %w", err)
	}
	return val, nil
}

func (s *RedisStore) Remember(ctx context.Context, key, jobID string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, jobID, ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency key: %w", err)
	}
	return nil
}

// MemoryStore is a process-local store for tests and single-process
// deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	jobID     string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Lookup(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return "", nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, key)
		return "", nil
	}
	return entry.jobID, nil
}

func (s *MemoryStore) Remember(ctx context.Context, key, jobID string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{jobID: jobID, expiresAt: time.Now().Add(ttl)}
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
