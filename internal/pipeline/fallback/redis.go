package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps one hash per namespace, field = lead id.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects using a redis:// URL.
func NewRedisBackend(ctx context.Context, redisURL, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse fallback redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping fallback redis: %w", err)
	}
	return NewRedisBackendWithClient(client, prefix), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "board:pending"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(namespace string) string {
	return b.prefix + ":" + namespace
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) Fetch(ctx context.Context, namespace, key string) ([]byte, error) {
	value, err := b.client.HGet(ctx, b.key(namespace), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pending write: %w", err)
	}
	return value, nil
}

func (b *RedisBackend) Save(ctx context.Context, namespace, key string, value []byte) error {
	if err := b.client.HSet(ctx, b.key(namespace), key, value).Err(); err != nil {
		return fmt.Errorf("save pending write: %w", err)
	}
	return nil
}

func (b *RedisBackend) Remove(ctx context.Context, namespace, key string) error {
	if err := b.client.HDel(ctx, b.key(namespace), key).Err(); err != nil {
		return fmt.Errorf("remove pending write: %w", err)
	}
	return nil
}

func (b *RedisBackend) Load(ctx context.Context, namespace string) (map[string][]byte, error) {
	values, err := b.client.HGetAll(ctx, b.key(namespace)).Result()
	if err != nil {
		return nil, fmt.Errorf("load pending writes: %w", err)
	}
	out := make(map[string][]byte, len(values))
	for key, value := range values {
		out[key] = []byte(value)
	}
	return out, nil
}

var _ Backend = (*RedisBackend)(nil)
