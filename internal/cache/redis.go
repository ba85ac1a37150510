package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/cloakd/cloakd/internal/config"
	"github.com/cloakd/cloakd/internal/engine"
)

// ResultCache is a Redis-backed cache for anonymization results. The
// engine is deterministic, so a result can be replayed for any identical
// (text, config fingerprint) pair until it expires.
type ResultCache struct {
	client *redis.Client
	config *config.CacheConfig
	logger *zap.Logger
	stats  *cacheStats
}

type cacheStats struct {
	hits   int64
	misses int64
}

// Stats reports cache performance counters.
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	TotalKeys int64   `json:"total_keys"`
}

// New creates a Redis-backed result cache and verifies connectivity.
func New(cfg *config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	c := &ResultCache{
		client: client,
		config: cfg,
		logger: logger,
		stats:  &cacheStats{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("result cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("default_ttl", cfg.DefaultTTL))

	return c, nil
}

// Key derives the cache key for a text/config pair. The text itself never
// appears in the key, only its digest.
func (c *ResultCache) Key(text, configFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(configFingerprint))
	return fmt.Sprintf("%s:result:%s", c.config.KeyPrefix, hex.EncodeToString(h.Sum(nil))[:32])
}

// Get returns a cached result, or nil on a miss. Lookup errors degrade to
// a miss: the caller recomputes and the engine stays the source of truth.
func (c *ResultCache) Get(ctx context.Context, key string) *engine.Result {
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		c.stats.misses++
		return nil
	} else if err != nil {
		c.logger.Error("cache lookup failed", zap.Error(err))
		c.stats.misses++
		return nil
	}

	var result engine.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("failed to unmarshal cached result", zap.Error(err))
		c.client.Del(ctx, key)
		c.stats.misses++
		return nil
	}

	c.stats.hits++
	c.logger.Debug("cache hit", zap.String("key", key))
	return &result
}

// Put stores a result with the configured TTL. Failures are logged and
// otherwise ignored; caching is an optimization, not a dependency.
func (c *ResultCache) Put(ctx context.Context, key string, result *engine.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("failed to marshal result for caching", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.config.DefaultTTL).Err(); err != nil {
		c.logger.Error("failed to cache result", zap.Error(err))
	}
}

// GetStats returns cache performance statistics.
func (c *ResultCache) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Hits:   c.stats.hits,
		Misses: c.stats.misses,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	keys, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis key count: %w", err)
	}
	stats.TotalKeys = keys

	return stats, nil
}

// Clear removes all cached results under this cache's prefix.
func (c *ResultCache) Clear(ctx context.Context) error {
	pattern := c.config.KeyPrefix + ":result:*"

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	c.logger.Info("cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection.
func (c *ResultCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.SplitN(url, "@", 2)
	if idx := strings.LastIndex(parts[0], ":"); idx > strings.Index(parts[0], "//")+1 {
		parts[0] = parts[0][:idx] + ":***"
	}
	return parts[0] + "@" + parts[1]
}
