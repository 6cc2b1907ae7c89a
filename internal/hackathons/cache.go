package hackathons

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/models"
)

const cacheKeyPrefix = "hackathon:slug:"

// Cache keeps public slug lookups in Redis. A nil client disables it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a slug cache.
func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil && c.ttl > 0
}

// Get returns the cached hackathon for slug, if any.
func (c *Cache) Get(ctx context.Context, slug string) (*models.Hackathon, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+slug).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("hackathon cache read failed", zap.String("slug", slug), zap.Error(err))
		}
		return nil, false
	}
	var h models.Hackathon
	if err := json.Unmarshal(raw, &h); err != nil {
		c.logger.Warn("hackathon cache entry corrupt", zap.String("slug", slug), zap.Error(err))
		return nil, false
	}
	return &h, true
}

// Set stores h under its slug.
func (c *Cache) Set(ctx context.Context, h *models.Hackathon) {
	if !c.enabled() || h.Slug == "" {
		return
	}
	raw, err := json.Marshal(h)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+h.Slug, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("hackathon cache write failed", zap.String("slug", h.Slug), zap.Error(err))
	}
}

// Invalidate drops the entries for slugs.
func (c *Cache) Invalidate(ctx context.Context, slugs ...string) {
	if !c.enabled() {
		return
	}
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, cacheKeyPrefix+s)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("hackathon cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
