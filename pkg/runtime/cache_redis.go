package runtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clauselab/regula/pkg/compiler"
)

const redisKeyPrefix = "regula:ir:"

// RedisCache is a Cache backed by Redis, for sharing compiled IR across
// processes. It is strictly best-effort: any Redis failure degrades to a
// cache miss and the caller recompiles, so evaluation never depends on
// Redis availability.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps an existing Redis client. ttl <= 0 stores entries
// without expiry; content-addressed keys make stale entries impossible,
// only unused ones.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, contentHash string) (*compiler.CompiledRule, bool) {
	data, err := c.client.Get(ctx, redisKeyPrefix+contentHash).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis ir cache get failed", "error", err)
		}
		return nil, false
	}
	var compiled compiler.CompiledRule
	if err := json.Unmarshal(data, &compiled); err != nil {
		c.logger.Warn("redis ir cache entry corrupt", "hash", contentHash, "error", err)
		return nil, false
	}
	return &compiled, true
}

func (c *RedisCache) Put(ctx context.Context, contentHash string, compiled *compiler.CompiledRule) {
	data, err := json.Marshal(compiled)
	if err != nil {
		c.logger.Warn("redis ir cache marshal failed", "hash", contentHash, "error", err)
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+contentHash, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis ir cache put failed", "hash", contentHash, "error", err)
	}
}
