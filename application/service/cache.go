package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/stylo/wardrobe/domain/outfit"
)

// DefaultSuggestionTTL bounds cached suggestion responses (SPEC_FULL.md
// §3: CacheEntry, TTL <= 5 minutes for suggestions).
const DefaultSuggestionTTL = 5 * time.Minute

// SuggestionCache is C3: a key->value store with TTL for memoized
// suggestion responses, invalidated by owner on any catalog mutation.
// Degrades silently on backend failure (SPEC_FULL.md §5: "must not raise
// on failure").
type SuggestionCache interface {
	Get(ctx context.Context, ownerID, query string) (outfit.SuggestionResult, bool)
	Set(ctx context.Context, ownerID, query string, result outfit.SuggestionResult, ttl time.Duration)
	InvalidateOwner(ctx context.Context, ownerID string)
}

// CacheKey derives the deterministic cache key for (ownerID, query):
// normalize(query) = lowercase, trim, collapse internal whitespace, then
// hash alongside ownerID so distinct owners never share entries
// (SPEC_FULL.md §8, invariant 6).
func CacheKey(ownerID, query string) string {
	norm := normalizeQuery(query)
	h := sha256.Sum256([]byte(ownerID + "\x00" + norm))
	return "suggest:" + ownerID + ":" + hex.EncodeToString(h[:])
}

func normalizeQuery(query string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	return strings.Join(fields, " ")
}

// InProcessCache implements SuggestionCache over patrickmn/go-cache, the
// fallback backend SPEC_FULL.md §6 requires when no cache backend URL is
// configured or it is unreachable. Invalidation by owner is a linear scan
// of go-cache's item list (acceptable: it runs only on catalog mutation,
// not on the request hot path).
type InProcessCache struct {
	c      *gocache.Cache
	logger *slog.Logger
}

// NewInProcessCache creates an in-process TTL cache with the given
// default expiration; expired entries are purged every 2*defaultTTL.
func NewInProcessCache(defaultTTL time.Duration, logger *slog.Logger) *InProcessCache {
	return &InProcessCache{
		c:      gocache.New(defaultTTL, defaultTTL*2),
		logger: logger,
	}
}

func (c *InProcessCache) Get(_ context.Context, ownerID, query string) (outfit.SuggestionResult, bool) {
	key := CacheKey(ownerID, query)
	raw, ok := c.c.Get(key)
	if !ok {
		return outfit.SuggestionResult{}, false
	}
	result, ok := raw.(outfit.SuggestionResult)
	return result, ok
}

func (c *InProcessCache) Set(_ context.Context, ownerID, query string, result outfit.SuggestionResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSuggestionTTL
	}
	c.c.Set(CacheKey(ownerID, query), result, ttl)
}

func (c *InProcessCache) InvalidateOwner(_ context.Context, ownerID string) {
	prefix := "suggest:" + ownerID + ":"
	for key := range c.c.Items() {
		if strings.HasPrefix(key, prefix) {
			c.c.Delete(key)
		}
	}
}

// RedisCache implements SuggestionCache over redis/go-redis/v9, the
// external backend used when a cache backend URL is configured and
// reachable. Values are JSON-encoded; invalidation by owner uses SCAN +
// DEL over the owner's key prefix rather than KEYS, to avoid blocking a
// shared Redis instance.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, ownerID, query string) (outfit.SuggestionResult, bool) {
	key := CacheKey(ownerID, query)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis cache get failed", slog.String("error", err.Error()))
		}
		return outfit.SuggestionResult{}, false
	}
	var result outfit.SuggestionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("redis cache decode failed", slog.String("error", err.Error()))
		return outfit.SuggestionResult{}, false
	}
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, ownerID, query string, result outfit.SuggestionResult, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSuggestionTTL
	}
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("redis cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := c.client.Set(ctx, CacheKey(ownerID, query), raw, ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", slog.String("error", err.Error()))
	}
}

func (c *RedisCache) InvalidateOwner(ctx context.Context, ownerID string) {
	prefix := "suggest:" + ownerID + ":*"
	iter := c.client.Scan(ctx, 0, prefix, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("redis cache scan failed", slog.String("error", err.Error()))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("redis cache invalidate failed", slog.String("error", err.Error()))
	}
}
