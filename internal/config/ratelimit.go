package config

import "time"

// RateLimitConfig sizes the Redis token bucket in front of the reserve
// endpoint.  Buckets are per account and route.
type RateLimitConfig struct {
    Enabled bool
    // Capacity is the burst size and the number of tokens a new bucket
    // starts with.
    Capacity int
    // RefillTokens are added every RefillInterval, up to Capacity.
    RefillTokens   int
    RefillInterval time.Duration
    // TTL expires idle buckets.  It is at least five refill intervals.
    TTL    time.Duration
    Prefix string
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST is
// accepted as an alias of RATE_LIMIT_CAPACITY.
func LoadRateLimitConfig() RateLimitConfig {
    capacity := envInt("RATE_LIMIT_CAPACITY", 10)
    capacity = envInt("RATE_LIMIT_BURST", capacity)

    rl := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       max(capacity, 1),
        RefillTokens:   max(envInt("RATE_LIMIT_REFILL_TOKENS", 1), 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "userpark:rl"),
    }
    if rl.RefillInterval <= 0 {
        rl.RefillInterval = time.Second
    }
    rl.TTL = max(rl.TTL, 5*rl.RefillInterval)
    return rl
}
