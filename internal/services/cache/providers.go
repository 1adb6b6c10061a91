// Package cache keeps the active provider directory in Redis between requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ndt-connect/internal/config"
	"ndt-connect/internal/metrics"
	"ndt-connect/internal/models"
)

// ActiveProvidersKey holds the JSON-encoded active directory.
const ActiveProvidersKey = "ndt:providers:active"

// ProviderSource yields the active provider directory.
type ProviderSource interface {
	GetAllActive(ctx context.Context) ([]*models.Provider, error)
}

// NewRedisClient creates a Redis client from the application configuration.
func NewRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

// ProviderCache is a read-through cache in front of a ProviderSource.
// Redis failures are logged and the request falls through to the source.
type ProviderCache struct {
	client *redis.Client
	source ProviderSource
	ttl    time.Duration
	logger *zap.Logger
}

// NewProviderCache wraps source with a Redis cache entry that expires after ttl.
func NewProviderCache(client *redis.Client, source ProviderSource, ttl time.Duration, logger *zap.Logger) *ProviderCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProviderCache{client: client, source: source, ttl: ttl, logger: logger}
}

// GetAllActive returns the cached directory, loading it from the source on a miss.
func (c *ProviderCache) GetAllActive(ctx context.Context) ([]*models.Provider, error) {
	providers, err := c.get(ctx)
	switch {
	case err == nil:
		metrics.ProviderCacheLookups.WithLabelValues("hit").Inc()
		return providers, nil
	case errors.Is(err, redis.Nil):
		metrics.ProviderCacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.ProviderCacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("Provider cache read failed", zap.Error(err))
	}

	providers, err = c.source.GetAllActive(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.set(ctx, providers); err != nil {
		c.logger.Warn("Provider cache write failed", zap.Error(err))
	}

	return providers, nil
}

// Invalidate drops the cached directory so the next read reloads it.
func (c *ProviderCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, ActiveProvidersKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate provider cache: %w", err)
	}
	c.logger.Info("Provider cache invalidated")
	return nil
}

// Ping tests the Redis connection.
func (c *ProviderCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *ProviderCache) get(ctx context.Context) ([]*models.Provider, error) {
	data, err := c.client.Get(ctx, ActiveProvidersKey).Bytes()
	if err != nil {
		return nil, err
	}

	var providers []*models.Provider
	if err := json.Unmarshal(data, &providers); err != nil {
		return nil, fmt.Errorf("failed to decode cached providers: %w", err)
	}
	return providers, nil
}

func (c *ProviderCache) set(ctx context.Context, providers []*models.Provider) error {
	data, err := json.Marshal(providers)
	if err != nil {
		return fmt.Errorf("failed to encode providers: %w", err)
	}
	return c.client.Set(ctx, ActiveProvidersKey, data, c.ttl).Err()
}
