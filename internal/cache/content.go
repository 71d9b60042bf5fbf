package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Keys for the cached public reads.
const (
	KeyProjects = "site:cache:projects"
	KeyGallery  = "site:cache:gallery"
	KeyDonation = "site:cache:donation"
	KeyFounder  = "site:cache:founder"
)

// ContentCache stores public read models as JSON. Every method tolerates a
// nil client and never fails the caller; a broken cache degrades to a miss.
type ContentCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewContentCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *ContentCache {
	return &ContentCache{client: client, ttl: ttl, log: log}
}

func (c *ContentCache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache entry corrupt")
		return false
	}
	return true
}

func (c *ContentCache) Set(ctx context.Context, key string, value any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

func (c *ContentCache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || c.client == nil || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn().Err(err).Strs("keys", keys).Msg("cache invalidate failed")
	}
}
