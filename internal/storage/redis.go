package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "tuning"

// RedisOptions configures RedisSlots.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisSlots stores slots as plain Redis strings without expiry, so several
// terminals can share one cart.
type RedisSlots struct {
	client *redis.Client
	prefix string
}

// NewRedisSlots connects lazily; the first command reports connection errors.
func NewRedisSlots(opts RedisOptions) *RedisSlots {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisSlots{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		prefix: prefix,
	}
}

// Ping checks the connection.
func (s *RedisSlots) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSlots) Get(ctx context.Context, name string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.buildKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage.RedisSlots.Get: %w", err)
	}
	return val, nil
}

func (s *RedisSlots) Put(ctx context.Context, name string, data []byte) error {
	if err := s.client.Set(ctx, s.buildKey(name), data, 0).Err(); err != nil {
		return fmt.Errorf("storage.RedisSlots.Put: %w", err)
	}
	return nil
}

func (s *RedisSlots) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, s.buildKey(name)).Err(); err != nil {
		return fmt.Errorf("storage.RedisSlots.Delete: %w", err)
	}
	return nil
}

func (s *RedisSlots) Close() error {
	return s.client.Close()
}

func (s *RedisSlots) buildKey(name string) string {
	return fmt.Sprintf("%s:slot:%s", s.prefix, strings.TrimSpace(name))
}
