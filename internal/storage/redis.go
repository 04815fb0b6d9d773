package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RedisStorage struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStorage connects to addr, waiting briefly for the server to answer PING.
func NewRedisStorage(ctx context.Context, config RedisConfig, logger *zap.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	err := retry.Do(
		func() error { return client.Ping(ctx).Err() },
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return NewRedisStorageFromClient(client, logger), nil
}

func NewRedisStorageFromClient(client *redis.Client, logger *zap.Logger) *RedisStorage {
	return &RedisStorage{client: client, logger: logger}
}

func (s *RedisStorage) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading key %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("error writing key %s: %w", key, err)
	}
	s.logger.Debug("Persisted key", zap.String("key", key), zap.Int("bytes", len(value)))
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
