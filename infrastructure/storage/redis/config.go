// Package redis provides a Redis-backed synthesis result cache.
package redis

import (
	"time"

	"github.com/redis/go-redis/v9"

	domainconfig "github.com/felixgeelhaar/tastate/domain/config"
)

const (
	// DefaultKeyPrefix namespaces keys when the configuration sets none.
	DefaultKeyPrefix = "tastate:"

	defaultAddr       = "localhost:6379"
	defaultTimeout    = 3 * time.Second
	defaultMaxRetries = 3
)

// clientOptions translates the redis section of a cache configuration.
func clientOptions(cfg domainconfig.RedisConfig) *redis.Options {
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	addr := cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}
	return &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   defaultMaxRetries,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		PoolSize:     cfg.PoolSize,
	}
}

func keyPrefix(cfg domainconfig.RedisConfig) string {
	if cfg.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return cfg.KeyPrefix
}
