package config

import "time"

// CacheConfig controls the short-TTL Redis cache in front of trip
// detail reads.  Seat availability is never cached; only the
// slow-moving trip metadata is, and briefly, so schedule edits still
// show up within seconds.
type CacheConfig struct {
    Enabled      bool
    TTL          time.Duration
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from environment
// variables.  Defaults keep entries short-lived and small.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        TTL:          envDur("CACHE_TTL", 10*time.Second),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 10 * time.Second
    }
    return cfg
}
