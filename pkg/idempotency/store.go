package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store tracks operations that must run at most once. First reports whether
// this is the first time key has been claimed; every later claim of the same
// key returns false.
type Store interface {
	First(ctx context.Context, key string) (bool, error)
}

// MessageKey builds the dedup key for a broker delivery. Redeliveries of the
// same message carry the same topic/partition/offset triple.
func MessageKey(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// OperationKey builds the dedup key for a domain-level side effect, e.g. the
// compensation run for a cancelled order.
func OperationKey(kind, id string) string {
	return fmt.Sprintf("applied:%s:%s", kind, id)
}

type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) First(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// MemoryStore is a process-local Store for tests and single-node runs.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) First(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}
