package config

import "time"

// RateLimitConfig configures the Redis token bucket placed in front of the
// booking routes.  Burst and RefillEvery are shorthands that override
// Capacity and RefillTokens/RefillInterval when set.
type RateLimitConfig struct {
    Enabled        bool          `env:"RATE_LIMIT_ENABLED" env-default:"true"`
    Capacity       int           `env:"RATE_LIMIT_CAPACITY" env-default:"30"`
    RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" env-default:"1"`
    RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" env-default:"1s"`
    TTL            time.Duration `env:"RATE_LIMIT_TTL" env-default:"10m"`
    KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" env-default:"ip_user_route"`
    Prefix         string        `env:"RATE_LIMIT_PREFIX" env-default:"travel:rl"`
    Debug          bool          `env:"RATE_LIMIT_DEBUG" env-default:"false"`
    Burst          int           `env:"RATE_LIMIT_BURST" env-default:"0"`
    RefillEvery    time.Duration `env:"RATE_LIMIT_REFILL_EVERY" env-default:"0s"`
}

func (r *RateLimitConfig) normalize() {
    if r.Burst > 0 {
        r.Capacity = r.Burst
    }
    if r.RefillEvery > 0 {
        r.RefillTokens = 1
        r.RefillInterval = r.RefillEvery
    }
    if r.Capacity < 1 { r.Capacity = 1 }
    if r.RefillTokens < 1 { r.RefillTokens = 1 }
    if r.RefillInterval <= 0 { r.RefillInterval = time.Second }
    // keep buckets alive long enough to refill completely at least a few times
    minTTL := 5 * r.RefillInterval
    if r.TTL < minTTL { r.TTL = minTTL }
}
