package config

import (
	"strings"
	"time"
)

// CacheConfig defines the orchestrator cache.  Backend is "memory" (a
// bounded LRU local to the process) or "redis" (shared, falls back to
// memory when Redis is unreachable).  ShortTTL applies to scraped listings
// and LongTTL to movie catalog lookups; LongTTL is never below ShortTTL.
// MaxEntries bounds the memory backend and is reported by cacheStatus for
// both.
type CacheConfig struct {
	Backend    string
	ShortTTL   time.Duration
	LongTTL    time.Duration
	MaxEntries int
	Prefix     string
}

// LoadCacheConfig reads CACHE_* variables.  Defaults mirror the upstream
// sites' update cadence: listings change a few times a day, catalog entries
// rarely.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Backend:    strings.ToLower(envStr("CACHE_BACKEND", "memory")),
		ShortTTL:   envDur("CACHE_SHORT_TTL", 3*time.Hour),
		LongTTL:    envDur("CACHE_LONG_TTL", 12*time.Hour),
		MaxEntries: envInt("CACHE_MAX_ENTRIES", 1000),
		Prefix:     envStr("CACHE_PREFIX", "cartelera"),
	}
	return cfg.normalized()
}

func (c CacheConfig) normalized() CacheConfig {
	if c.ShortTTL <= 0 {
		c.ShortTTL = 3 * time.Hour
	}
	if c.LongTTL < c.ShortTTL {
		c.LongTTL = c.ShortTTL
	}
	if c.MaxEntries < 1 {
		c.MaxEntries = 1
	}
	return c
}
