package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DocumentCache fronts a bounded in-process LRU with an optional Redis tier,
// so that unmarshaled templates/configurations are shared first within a
// process and, when Redis is configured, across simulator instances on the
// same host or cluster. Redis failures are logged and treated as a cache
// miss rather than propagated, matching spec.md's "read-mostly, best-effort"
// characterization of this cache.
type DocumentCache struct {
	local *LRU
	redis *redis.Client
	ttl   time.Duration
	log   *zap.Logger
}

// NewDocumentCache builds a DocumentCache. redisClient may be nil, in which
// case only the in-process LRU tier is used.
func NewDocumentCache(capacity int, redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *DocumentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentCache{
		local: NewLRU(capacity),
		redis: redisClient,
		ttl:   ttl,
		log:   logger,
	}
}

// Get looks up hash, checking the local LRU first and falling back to Redis.
// out must be a pointer; a Redis hit unmarshals into it and also warms the
// local tier.
func (d *DocumentCache) Get(ctx context.Context, hash string, out interface{}) bool {
	if v, ok := d.local.Get(hash); ok {
		if raw, ok := v.(json.RawMessage); ok {
			if err := json.Unmarshal(raw, out); err == nil {
				return true
			}
		}
	}

	if d.redis == nil {
		return false
	}

	raw, err := d.redis.Get(ctx, redisKey(hash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			d.log.Warn("document cache redis get failed", zap.String("hash", hash), zap.Error(err))
		}
		return false
	}

	if err := json.Unmarshal(raw, out); err != nil {
		d.log.Warn("document cache redis payload corrupt", zap.String("hash", hash), zap.Error(err))
		return false
	}

	d.local.Put(hash, json.RawMessage(raw))
	return true
}

// Put stores v under hash in both tiers.
func (d *DocumentCache) Put(ctx context.Context, hash string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		d.log.Warn("document cache marshal failed", zap.String("hash", hash), zap.Error(err))
		return
	}

	d.local.Put(hash, json.RawMessage(raw))

	if d.redis == nil {
		return
	}
	if err := d.redis.Set(ctx, redisKey(hash), raw, d.ttl).Err(); err != nil {
		d.log.Warn("document cache redis set failed", zap.String("hash", hash), zap.Error(err))
	}
}

func redisKey(hash string) string {
	return "stationsim:doc:" + hash
}
