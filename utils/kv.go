package utils

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrKeyMiss indicates the key does not exist in the store.
var ErrKeyMiss = errors.New("key miss")

// PutOptions carries optional write settings. A zero TTL means the value
// does not expire.
type PutOptions struct {
	TTL time.Duration
}

// KV is the key-value contract the economy runs on. Implementations are
// assumed eventually consistent with no read-your-writes guarantee; every
// caller that needs a write to stick verifies it through the Ledger.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, opts PutOptions) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// RedisKV backs the KV contract with Redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects to Redis and verifies the connection with a ping.
func NewRedisKV(ctx context.Context, addr, password string, db int) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}

	return &RedisKV{client: client}, nil
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrKeyMiss
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *RedisKV) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	return s.client.Set(ctx, key, value, opts.TTL).Err()
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisKV) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *RedisKV) Close() error {
	return s.client.Close()
}

// kvEntry is a stored value with optional expiry.
type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *kvEntry) expired() bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}

// MemoryKV is an in-process implementation of KV for tests and store-less
// development runs.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]*kvEntry

	// FailPuts makes the next N Put calls fail; used to exercise the
	// ledger's retry path in tests.
	FailPuts int
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]*kvEntry)}
}

func (s *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || entry.expired() {
		return nil, ErrKeyMiss
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (s *MemoryKV) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts > 0 {
		s.FailPuts--
		return errors.New("simulated put failure")
	}

	entry := &kvEntry{value: append([]byte(nil), value...)}
	if opts.TTL > 0 {
		entry.expiresAt = time.Now().Add(opts.TTL)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryKV) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryKV) List(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, entry := range s.entries {
		if strings.HasPrefix(key, prefix) && !entry.expired() {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
