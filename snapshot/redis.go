package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the snapshot under one Redis key. Intended for kiosk and
// terminal deployments where client state lives on a shared cache host.
type RedisStore struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

// NewRedisStore builds a store over client. An empty key falls back to
// [DefaultKey]; a zero ttl persists the snapshot without expiry.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("snapshot: redis client required")
	}
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{rdb: client, key: key, ttl: ttl}, nil
}

// Load fetches and decodes the snapshot.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("snapshot: redis get: %w", err)
	}
	return Decode(data)
}

// Save writes the snapshot, resetting the configured TTL.
func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("snapshot: redis set: %w", err)
	}
	return nil
}

// Clear deletes the snapshot key. Deleting an absent key is a no-op.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("snapshot: redis del: %w", err)
	}
	return nil
}
