package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces castgraph keys in a shared Redis.
const DefaultRedisPrefix = "castgraph:"

// RedisCache stores entries in Redis under a key prefix. Expiry is
// delegated to Redis TTLs.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// RedisOption configures a [RedisCache].
type RedisOption func(*redisConfig)

type redisConfig struct {
	opts   redis.Options
	prefix string
}

// WithRedisPrefix overrides [DefaultRedisPrefix].
func WithRedisPrefix(p string) RedisOption {
	return func(c *redisConfig) { c.prefix = p }
}

// WithRedisAuth sets the password and database number.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *redisConfig) {
		c.opts.Password = password
		c.opts.DB = db
	}
}

// WithRedisDialTimeout bounds connection setup.
func WithRedisDialTimeout(d time.Duration) RedisOption {
	return func(c *redisConfig) { c.opts.DialTimeout = d }
}

// NewRedisCache creates a cache backed by the Redis server at addr. The
// connection is established lazily; use [RedisCache.Ping] to check it.
func NewRedisCache(addr string, opts ...RedisOption) *RedisCache {
	cfg := redisConfig{
		opts:   redis.Options{Addr: addr, MaxRetries: -1},
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &RedisCache{client: redis.NewClient(&cfg.opts), prefix: cfg.prefix}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get retrieves a value.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

// Delete removes a value.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

// Clear removes every key under the prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 256).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Close closes the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
