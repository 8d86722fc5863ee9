// Package cache keeps short-lived copies of per-resource seat availability
// in Redis.  Entries are addressed by a generation that every seat change
// bumps, so an entry can only be stale for as long as a single read takes.
// The database stays authoritative either way: locking a seat that is
// listed but taken simply fails.
package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-booking-service/internal/config"
	"github.com/iliyamo/seat-booking-service/internal/model"
)

const versionTTL = 24 * time.Hour

// SeatCache implements service.AvailabilityCache.  A nil *SeatCache is a
// valid, always-missing cache.  Redis errors are logged and treated as
// misses.
type SeatCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewSeatCache returns nil when caching is disabled or rdb is nil.
func NewSeatCache(rdb *redis.Client, cfg config.SeatCacheConfig, logger *zap.Logger) *SeatCache {
	if rdb == nil || !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeatCache{rdb: rdb, ttl: cfg.TTL, prefix: cfg.Prefix, logger: logger.Named("seat-cache")}
}

// Keys: the global epoch, a per-resource version and the data entry
// addressed by both.  Bumping either counter orphans the data entry, so a
// list that read the database before an invalidation writes to a key no
// reader will ever ask for.
func (c *SeatCache) epochKey() string { return c.prefix + ":epoch" }

func (c *SeatCache) versionKey(resourceID uint64) string {
	return c.prefix + ":" + strconv.FormatUint(resourceID, 10) + ":ver"
}

func (c *SeatCache) dataKey(resourceID uint64, gen string) string {
	return c.prefix + ":" + strconv.FormatUint(resourceID, 10) + ":" + gen
}

// Generation returns the current cache generation of a resource.  It must
// be read before the database so that Set can detect an invalidation that
// happened in between.  ok is false when Redis cannot answer.
func (c *SeatCache) Generation(ctx context.Context, resourceID uint64) (string, bool) {
	if c == nil {
		return "", false
	}
	vals, err := c.rdb.MGet(ctx, c.epochKey(), c.versionKey(resourceID)).Result()
	if err != nil || len(vals) != 2 {
		c.logger.Warn("generation lookup failed", zap.Uint64("resource_id", resourceID), zap.Error(err))
		return "", false
	}
	return counter(vals[0]) + "." + counter(vals[1]), true
}

// counter renders an MGET value; a missing counter is generation zero.
func counter(v interface{}) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return "0"
}

func (c *SeatCache) Get(ctx context.Context, resourceID uint64, gen string) ([]model.Seat, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.dataKey(resourceID, gen)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("get failed", zap.Uint64("resource_id", resourceID), zap.Error(err))
		}
		return nil, false
	}
	var seats []model.Seat
	if err := json.Unmarshal(raw, &seats); err != nil {
		c.logger.Warn("corrupt entry", zap.Uint64("resource_id", resourceID), zap.Error(err))
		return nil, false
	}
	return seats, true
}

// Set stores seats under generation gen.  If the resource was invalidated
// after gen was read the entry is unreachable and simply expires.
func (c *SeatCache) Set(ctx context.Context, resourceID uint64, gen string, seats []model.Seat) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(seats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.dataKey(resourceID, gen), string(raw), c.ttl).Err(); err != nil {
		c.logger.Warn("set failed", zap.Uint64("resource_id", resourceID), zap.Error(err))
	}
}

// Invalidate bumps the resource version.
func (c *SeatCache) Invalidate(ctx context.Context, resourceID uint64) {
	if c == nil {
		return
	}
	key := c.versionKey(resourceID)
	if err := c.rdb.Incr(ctx, key).Err(); err != nil {
		c.logger.Warn("invalidate failed", zap.Uint64("resource_id", resourceID), zap.Error(err))
		return
	}
	// idle versions may lapse; their data entries are long gone by then
	if err := c.rdb.Expire(ctx, key, versionTTL).Err(); err != nil {
		c.logger.Warn("version expire failed", zap.Uint64("resource_id", resourceID), zap.Error(err))
	}
}

// InvalidateAll bumps the epoch, orphaning every entry at once.  Used after
// an expiry sweep, which does not report which resources it touched.
func (c *SeatCache) InvalidateAll(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.rdb.Incr(ctx, c.epochKey()).Err(); err != nil {
		c.logger.Warn("invalidate all failed", zap.Error(err))
	}
}
