package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
	PoolSize int
}

// RedisBackend stores responses in Redis under a key prefix, so several
// solrscout instances share one cache.
type RedisBackend struct {
	counters
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisBackend connects to Redis. The connection is checked lazily; a
// failing Redis shows up as backend errors, which the cached engine treats
// as misses.
func NewRedisBackend(cfg RedisConfig) *RedisBackend {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "solrscout:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	return newRedisBackend(client, cfg.Prefix, cfg.TTL)
}

func newRedisBackend(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, ttl: ttl}
}

// Ping checks the connection.
func (r *RedisBackend) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		r.record(false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}
	r.record(true)
	return value, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Purge implements Backend. Keys are found with SCAN so Redis is not blocked.
func (r *RedisBackend) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan error: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis batch delete error: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Stats implements Backend. Entries is not tracked for Redis.
func (r *RedisBackend) Stats() Stats {
	return Stats{
		Backend: "redis",
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
	}
}

// Close implements Backend.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
