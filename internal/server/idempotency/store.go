// Package idempotency remembers which report an Idempotency-Key produced,
// so a retried upload returns the original report instead of storing the
// file twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrInProgress is returned by Reserve while another upload holds the key.
var ErrInProgress = errors.New("idempotency key in progress")

// Store maps idempotency keys to report IDs.
type Store interface {
	// Reserve claims key for a new upload. If key already maps to a report,
	// its ID is returned and reserved is false.
	Reserve(ctx context.Context, key string) (reportID int64, reserved bool, err error)
	// Remember records reportID for a reserved key.
	Remember(ctx context.Context, key string, reportID int64) error
	// Release drops a reservation whose upload failed.
	Release(ctx context.Context, key string) error
}

// Key scopes a client-supplied idempotency key to the acting account.
func Key(accountID int64, clientKey string) string {
	return fmt.Sprintf("idem:upload:%d:%s", accountID, clientKey)
}

const pendingValue = "pending"

// RedisStore keeps keys in Redis with a TTL.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Reserve(ctx context.Context, key string) (int64, bool, error) {
	// A key may expire between SetNX and Get; one more round settles it.
	for range 2 {
		ok, err := s.client.SetNX(ctx, key, pendingValue, s.ttl).Result()
		if err != nil {
			return 0, false, fmt.Errorf("idempotency reserve: %w", err)
		}
		if ok {
			return 0, true, nil
		}

		v, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, false, fmt.Errorf("idempotency reserve: %w", err)
		}
		if v == pendingValue {
			return 0, false, ErrInProgress
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false, fmt.Errorf("idempotency reserve: bad value %q: %w", v, err)
		}
		return id, false, nil
	}
	return 0, false, ErrInProgress
}

func (s *RedisStore) Remember(ctx context.Context, key string, reportID int64) error {
	if err := s.client.Set(ctx, key, strconv.FormatInt(reportID, 10), s.ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

// Connect creates a Redis client and validates connectivity with a ping.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return client, nil
}

// DefaultMemoryEntries caps a MemoryStore created with size <= 0.
const DefaultMemoryEntries = 10000

// MemoryStore is a process-local Store used when Redis is not configured.
// Entries expire after the TTL and the least recently used ones are evicted
// once the store holds size keys.
type MemoryStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, int64]
}

// NewMemoryStore returns a store holding at most size keys for ttl each.
// A pending reservation is kept as report ID 0.
func NewMemoryStore(ttl time.Duration, size int) *MemoryStore {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &MemoryStore{cache: expirable.NewLRU[string, int64](size, nil, ttl)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.cache.Get(key); ok {
		if id == 0 {
			return 0, false, ErrInProgress
		}
		return id, false, nil
	}
	s.cache.Add(key, 0)
	return 0, true, nil
}

func (s *MemoryStore) Remember(_ context.Context, key string, reportID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(key, reportID)
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(key)
	return nil
}

// Len reports how many keys are held.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
