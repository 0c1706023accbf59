package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis server. Room records are plain
// string keys written with SET NX PX; message logs are Redis lists
// mutated through a single MULTI/EXEC pipeline per append.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at addr and verifies the
// connection with a ping.
func NewRedis(ctx context.Context, addr string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connect %s: %w", addr, err)
	}
	return &RedisStore{client: client}, nil
}

// Get returns the value at key, with ok=false on a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return value, true, nil
}

// SetNX performs a create-only write with a millisecond TTL.
func (s *RedisStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	created, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %q: %w", key, err)
	}
	return created, nil
}

// Expire resets the key's TTL; false when the key no longer exists.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	refreshed, err := s.client.PExpire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis pexpire %q: %w", key, err)
	}
	return refreshed, nil
}

// PushCapped runs LPUSH+LTRIM+LLEN as one transaction so concurrent
// appends can never interleave the insert and the trim.
func (s *RedisStore) PushCapped(ctx context.Context, key string, value []byte, max int) (int64, error) {
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, int64(max-1))
	length := pipe.LLen(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis push %q: %w", key, err)
	}
	return length.Val(), nil
}

// List returns the whole list at key, newest first (LPUSH order).
func (s *RedisStore) List(ctx context.Context, key string) ([][]byte, error) {
	values, err := s.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %q: %w", key, err)
	}
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
