package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// deleteIfStoredAt deletes KEYS[1] only while its stored_at field equals
// ARGV[1]. Entries are written by Save, so stored_at uses the same
// RFC 3339 encoding as ARGV[1].
var deleteIfStoredAt = redis.NewScript(`
local data = redis.call("GET", KEYS[1])
if not data then
	return 0
end
local ok, entry = pcall(cjson.decode, data)
if not ok or entry["stored_at"] ~= ARGV[1] then
	return 0
end
return redis.call("DEL", KEYS[1])
`)

// RedisStore keeps entries in Redis as JSON so several proxy replicas can
// share fetched items. Redis key expiry is set to the cache TTL as a
// backstop; the Manager's age check stays authoritative.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient}
}

// Name implements Store.
func (s *RedisStore) Name() string { return "redis" }

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, key string) (*Entry, error) {
	data, err := s.redis.Get(ctx, RedisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if entry.Item == nil {
		return nil, fmt.Errorf("%w: missing item", ErrInvalidEntry)
	}

	return &entry, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, RedisKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, RedisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DeleteIfStoredAt implements Store with a server-side compare-and-delete.
func (s *RedisStore) DeleteIfStoredAt(ctx context.Context, key string, storedAt time.Time) (bool, error) {
	n, err := deleteIfStoredAt.Run(ctx, s.redis, []string{RedisKey(key)}, storedAt.Format(time.RFC3339Nano)).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete: %w", err)
	}
	return n > 0, nil
}
