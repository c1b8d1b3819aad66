package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is disabled.
// Only the public resource listing is cached, so TTL stays short: capacity
// figures shown to guests may lag the ledger by at most TTL.
type CacheConfig struct {
    Enabled      bool          `env:"CACHE_ENABLED" env-default:"true"`
    MethodList   string        `env:"CACHE_METHODS" env-default:"GET"`
    TTL          time.Duration `env:"CACHE_TTL" env-default:"5s"`
    KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" env-default:"route_query"`
    Prefix       string        `env:"CACHE_PREFIX" env-default:"travel:cache"`
    MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" env-default:"1048576"`

    Methods map[string]bool
}

func (c *CacheConfig) normalize() {
    c.Methods = parseMethods(c.MethodList)
    if c.TTL <= 0 {
        c.TTL = 5 * time.Second
    }
    if c.Prefix == "" {
        c.Prefix = "travel:cache"
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
