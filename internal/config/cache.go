package config

import (
	"time"
)

// CacheConfig defines settings for the response cache middleware and the
// invalidation dispatcher.  When Enabled is false or no Redis client is
// configured, responses are never cached and eviction is a no-op.
// KeyStrategy chooses which parts of the request feed the cache key
// ("route", "route_query" or "method_route_query").
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
	EvictTimeout time.Duration // budget for one invalidation round
	ScanCount    int64         // COUNT hint for SCAN during eviction
}

// LoadCacheConfig reads CACHE_* variables.  The default TTL of five minutes
// matches how long catalogue views may stay cached between writes.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 5*time.Minute),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
		EvictTimeout: envDur("CACHE_EVICT_TIMEOUT", 2*time.Second),
		ScanCount:    int64(envInt("CACHE_SCAN_COUNT", 100)),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ScanCount < 1 {
		cfg.ScanCount = 100
	}
	return cfg
}
