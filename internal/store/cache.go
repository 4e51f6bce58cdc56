package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/nextwatch/internal/metrics"
	"github.com/raphaelgruber/nextwatch/internal/models"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "nextwatch:recommendation:"

// CachedStore is a read-through Redis cache for GetRecommendationByID.
// Records never change after creation, so entries expire by TTL only.
// Every other method goes straight to the wrapped Store.
type CachedStore struct {
	Store
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Collector
	logger  *slog.Logger
}

// NewCachedStore wraps next with a Redis cache.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, mc *metrics.Collector, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		Store:   next,
		client:  client,
		ttl:     ttl,
		metrics: mc,
		logger:  logger,
	}
}

// NewRedisClient builds a client for addr and verifies it responds.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func cacheKey(id string) string {
	return cacheKeyPrefix + id
}

func (c *CachedStore) GetRecommendationByID(ctx context.Context, id string) (*models.RecommendationRecord, error) {
	key := cacheKey(id)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec models.RecommendationRecord
		jsonErr := json.Unmarshal(raw, &rec)
		if jsonErr == nil {
			c.metrics.Inc(metrics.EventCacheHit)
			return &rec, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "key", key, "error", jsonErr)
		c.metrics.Inc(metrics.EventCacheError)
	case errors.Is(err, redis.Nil):
		c.metrics.Inc(metrics.EventCacheMiss)
	default:
		c.logger.Warn("cache read failed", "key", key, "error", err)
		c.metrics.Inc(metrics.EventCacheError)
	}

	rec, err := c.Store.GetRecommendationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(rec); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", "key", key, "error", err)
			c.metrics.Inc(metrics.EventCacheError)
		}
	}
	return rec, nil
}

// Ping checks the wrapped store. The cache is optional and not part of readiness.
func (c *CachedStore) Ping(ctx context.Context) error {
	return c.Store.Ping(ctx)
}

// Close closes the Redis client and the wrapped store.
func (c *CachedStore) Close(ctx context.Context) error {
	cacheErr := c.client.Close()
	if err := c.Store.Close(ctx); err != nil {
		return err
	}
	return cacheErr
}
