package config

import (
	"os"      // environment lookups
	"strconv" // integer parsing for REDIS_DB
	"time"    // cache TTL
)

// SeatCacheConfig defines settings for the Redis seat availability cache.
// When Enabled is false or no Redis client is configured, availability
// queries always hit the database.  TTL bounds how stale a cached list may
// get when an invalidation is missed.  Prefix namespaces the keys.
type SeatCacheConfig struct {
	Enabled bool          // SEAT_CACHE_ENABLED, default true
	TTL     time.Duration // SEAT_CACHE_TTL, default 5s
	Prefix  string        // SEAT_CACHE_PREFIX, default "seats:available"
}

// LoadSeatCacheConfig reads environment variables to build a SeatCacheConfig.
// Defaults are used when variables are not set.
func LoadSeatCacheConfig() SeatCacheConfig {
	cfg := SeatCacheConfig{
		Enabled: getenv("SEAT_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("SEAT_CACHE_TTL", "5s")),
		Prefix:  getenv("SEAT_CACHE_PREFIX", "seats:available"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return cfg
}

// getenv returns the variable or def when it is unset or empty.  Shared with
// redis.go.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// atoi parses s and yields 0 on malformed input.
func atoi(s string) int {
	i, _ := strconv.Atoi(s)
	return i
}

// parseDur parses a Go duration string; malformed input yields one second.
func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
