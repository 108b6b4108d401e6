// Package cache provides a small key/value cache used to serve repeated reads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache stores string values under namespaced keys.
type Cache interface {
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Get returns the value under key, or "" when the key is absent.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// GenerateKey builds a namespaced key for operation and key.
	GenerateKey(operation, key string) string

	// Close releases the underlying connection.
	Close() error
}

type redisCache struct {
	client      *redis.Client
	serviceName string
	logger      zerolog.Logger
}

// NewRedisCache connects to the configured Redis server and verifies it responds.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, serviceName string, logger zerolog.Logger) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	logger.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("connected to redis")

	return NewRedisCacheWithClient(client, serviceName, logger), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, serviceName string, logger zerolog.Logger) Cache {
	return &redisCache{
		client:      client,
		serviceName: serviceName,
		logger:      logger.With().Str("component", "cache").Logger(),
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return value, nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

func (r *redisCache) GenerateKey(operation, key string) string {
	return fmt.Sprintf("%s:%s:%s", r.serviceName, operation, key)
}

func (r *redisCache) Close() error {
	r.logger.Debug().Msg("closing redis client")
	return r.client.Close()
}
