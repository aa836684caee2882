package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "payouts:idempotency:"

// GetFromRedis decodes the JSON stored at key into target. A missing key
// reports found=false.
func GetFromRedis(ctx context.Context, rdb *redis.Client, key string, target interface{}) (bool, error) {
	cached, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(cached), target); err != nil {
		return false, err
	}
	return true, nil
}

// SetToRedis stores value as JSON under key.
func SetToRedis(ctx context.Context, rdb *redis.Client, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return rdb.Set(ctx, key, data, ttl).Err()
}

// CachedResponse is a replayable HTTP response.
type CachedResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       []byte `json:"body"`
	// Fingerprint identifies the caller and payload the response was produced for.
	Fingerprint string `json:"fingerprint"`
}

// IdempotencyStore remembers responses by Idempotency-Key and guards a key
// while its first request is in flight.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Save(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	// Acquire claims key for processing. It returns false when another request holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, error) {
	var resp CachedResponse
	found, err := GetFromRedis(ctx, s.client, idempotencyKeyPrefix+key, &resp)
	if err != nil || !found {
		return nil, err
	}
	return &resp, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	return SetToRedis(ctx, s.client, idempotencyKeyPrefix+key, resp, ttl)
}

func (s *RedisIdempotencyStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, idempotencyKeyPrefix+key+":lock", "1", ttl).Result()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyKeyPrefix+key+":lock").Err()
}

// MemoryIdempotencyStore keeps responses in process memory. TTLs are ignored.
type MemoryIdempotencyStore struct {
	mu        sync.Mutex
	responses map[string]CachedResponse
	locks     map[string]bool
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		responses: make(map[string]CachedResponse),
		locks:     make(map[string]bool),
	}
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*CachedResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.responses[key]
	if !ok {
		return nil, nil
	}
	return &resp, nil
}

func (s *MemoryIdempotencyStore) Save(_ context.Context, key string, resp CachedResponse, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[key] = resp
	return nil
}

func (s *MemoryIdempotencyStore) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locks[key] {
		return false, nil
	}
	s.locks[key] = true
	return true, nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, key)
	return nil
}
