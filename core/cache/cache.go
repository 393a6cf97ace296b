package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/siherrmann/cinegraph/helper"
	"github.com/siherrmann/cinegraph/model"
	"golang.org/x/sync/singleflight"
)

// DefaultPrefix namespaces every key the cache writes
const DefaultPrefix = "cinegraph_cache_"

// Cache memoizes knowledge graph answers keyed by the digest of the query text
type Cache struct {
	store            Store
	prefix           string
	ttl              time.Duration
	evictionFraction float64
	now              func() time.Time
	logger           *slog.Logger
	group            singleflight.Group
	hits             atomic.Int64
	misses           atomic.Int64
}

// Option configures a Cache
type Option func(*Cache)

// WithPrefix sets the key namespace
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// WithTTL sets how long an entry stays fresh
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithEvictionFraction sets the share of entries evicted when the store is full
func WithEvictionFraction(fraction float64) Option {
	return func(c *Cache) { c.evictionFraction = fraction }
}

// WithClock replaces time.Now, used by tests to move time forward
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger, nil keeps slog.Default
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = helper.LoggerOrDefault(logger) }
}

// New creates a cache on top of a store
func New(store Store, opts ...Option) *Cache {
	config := model.DefaultConfig()
	c := &Cache{
		store:            store,
		prefix:           DefaultPrefix,
		ttl:              config.CacheTTL,
		evictionFraction: config.EvictionFraction,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the namespaced digest of a query text
func (c *Cache) Key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return c.prefix + hex.EncodeToString(sum[:])
}

// GetOrFetch returns the fresh cached answer for query or calls fetch and stores its result.
// Concurrent callers for the same query share one fetch. Fetch errors are returned
// unchanged and nothing is stored. Storage failures never fail the call.
func GetOrFetch[T any](ctx context.Context, c *Cache, query string, fetch func(ctx context.Context) (T, error)) (T, error) {
	var result T
	key := c.Key(query)

	if raw, ok := c.lookup(ctx, key); ok {
		if err := json.Unmarshal(raw, &result); err == nil {
			c.hits.Add(1)
			lookupsTotal.WithLabelValues("hit").Inc()
			return result, nil
		}
		c.logger.Warn("Dropping corrupt cache entry", slog.String("key", key))
		lookupsTotal.WithLabelValues("corrupt").Inc()
		c.remove(ctx, key)
	}

	c.misses.Add(1)
	lookupsTotal.WithLabelValues("miss").Inc()
	if err := ctx.Err(); err != nil {
		return result, err
	}

	// The shared fetch outlives any single caller, each caller waits on its own ctx
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		value, err := fetch(shared)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, helper.NewError("marshal cache value", err)
		}
		c.write(shared, &model.CacheEntry{Key: key, Value: raw, InsertedAt: c.now()})
		return raw, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return result, res.Err
	}

	err := json.Unmarshal(res.Val.([]byte), &result)
	if err != nil {
		return result, helper.NewError("unmarshal cache value", err)
	}
	return result, nil
}

// lookup returns the raw payload of a fresh entry, expired entries are deleted
func (c *Cache) lookup(ctx context.Context, key string) ([]byte, bool) {
	entry, err := c.store.Get(ctx, key)
	if errors.Is(err, model.ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Error reading cache entry", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}

	if c.now().Sub(entry.InsertedAt) >= c.ttl {
		lookupsTotal.WithLabelValues("expired").Inc()
		c.remove(ctx, key)
		return nil, false
	}
	return entry.Value, true
}

// write stores an entry, on a full store it evicts the oldest entries and retries once
func (c *Cache) write(ctx context.Context, entry *model.CacheEntry) {
	err := c.store.Put(ctx, entry)
	if errors.Is(err, model.ErrQuotaExceeded) {
		evicted, evictErr := c.store.EvictOldest(ctx, c.prefix, c.evictionFraction)
		if evictErr != nil {
			c.logger.Warn("Error evicting cache entries", slog.String("error", evictErr.Error()))
		} else {
			evictionsTotal.Add(float64(evicted))
			c.logger.Info("Evicted oldest cache entries", slog.Int("count", evicted))
		}
		err = c.store.Put(ctx, entry)
	}
	if err != nil {
		writeFailuresTotal.Inc()
		c.logger.Warn("Dropping cache write", slog.String("key", entry.Key), slog.String("error", err.Error()))
	}
}

func (c *Cache) remove(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("Error deleting cache entry", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Clear deletes every entry in the namespace and returns how many were deleted
func (c *Cache) Clear(ctx context.Context) (int, error) {
	deleted, err := c.store.Clear(ctx, c.prefix)
	if err != nil {
		return 0, helper.NewError("clear cache", err)
	}
	c.logger.Info("Cleared cache", slog.Int("count", deleted))
	return deleted, nil
}

// Stats reports the namespace content and the hit counters of this cache
func (c *Cache) Stats(ctx context.Context) (model.CacheStats, error) {
	stats, err := c.store.Stats(ctx, c.prefix)
	if err != nil {
		return stats, helper.NewError("cache stats", err)
	}
	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	return stats, nil
}
