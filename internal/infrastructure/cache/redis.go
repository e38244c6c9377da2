// Package cache provides the Redis-backed read-through cache for block
// status lookups, the hottest query on the platform (every request checks
// capabilities).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/oficiosya/subscription-engine/internal/config"
	"github.com/oficiosya/subscription-engine/internal/usecase"
)

const defaultTTL = 60 * time.Second

// BlockStatusCache caches capability answers in Redis. Every cache failure
// degrades to a database read; it never fails a request.
type BlockStatusCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewBlockStatusCache creates the cache from config.
func NewBlockStatusCache(cfg *config.RedisConfig, logger *zap.Logger) *BlockStatusCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &BlockStatusCache{client: client, ttl: ttl, logger: logger}
}

// NewBlockStatusCacheWithClient wraps an existing Redis client; used by tests.
func NewBlockStatusCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *BlockStatusCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &BlockStatusCache{client: client, ttl: ttl, logger: logger}
}

func (c *BlockStatusCache) GetBlockStatus(ctx context.Context, orgID uuid.UUID) (*usecase.BlockStatus, bool) {
	data, err := c.client.Get(ctx, blockStatusKey(orgID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("block status cache read failed",
				zap.String("organization_id", orgID.String()),
				zap.Error(err))
		}
		return nil, false
	}

	var status usecase.BlockStatus
	if err := json.Unmarshal(data, &status); err != nil {
		c.logger.Warn("block status cache entry corrupt, dropping",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
		c.client.Del(ctx, blockStatusKey(orgID))
		return nil, false
	}
	return &status, true
}

func (c *BlockStatusCache) SetBlockStatus(ctx context.Context, orgID uuid.UUID, status *usecase.BlockStatus) {
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, blockStatusKey(orgID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("block status cache write failed",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
	}
}

func (c *BlockStatusCache) InvalidateBlockStatus(ctx context.Context, orgID uuid.UUID) {
	if err := c.client.Del(ctx, blockStatusKey(orgID)).Err(); err != nil {
		c.logger.Warn("block status cache invalidation failed",
			zap.String("organization_id", orgID.String()),
			zap.Error(err))
	}
}

// Close releases the underlying Redis connection.
func (c *BlockStatusCache) Close() error {
	return c.client.Close()
}

func blockStatusKey(orgID uuid.UUID) string {
	return "block_status:" + orgID.String()
}
