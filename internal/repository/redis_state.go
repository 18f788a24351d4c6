package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStateStore implements repository.StateStore on Redis. Values are plain
// strings; a companion ":updated_at" key records the last write time.
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStateStore creates a state store and verifies connectivity.
func NewRedisStateStore(addr, password string, db int) (*RedisStateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStateStore{client: client, prefix: "autotrade:state:"}, nil
}

// Get returns the stored value, or "" when the key was never set.
func (s *RedisStateStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("state get %s: %w", key, err)
	}
	return v, nil
}

// Set stores the value, last write wins.
func (s *RedisStateStore) Set(ctx context.Context, key, value string) error {
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.prefix+key, value, 0)
	pipe.Set(ctx, s.prefix+key+":updated_at", time.Now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("state set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
