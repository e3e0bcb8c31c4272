package tiles

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisTTL    = 24 * time.Hour
	defaultRedisPrefix = "tile"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// TTL applies to every stored tile; zero means one day.
	TTL time.Duration
	// KeyPrefix namespaces keys when several layers share a database.
	KeyPrefix string
}

// RedisCache stores tiles under <prefix>:<z>:<x>:<y>.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ TileCache = (*RedisCache)(nil)

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	c := &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		prefix: cfg.KeyPrefix,
	}
	if c.ttl <= 0 {
		c.ttl = defaultRedisTTL
	}
	if c.prefix == "" {
		c.prefix = defaultRedisPrefix
	}
	return c, nil
}

func (c *RedisCache) key(k TileCacheKey) string {
	return fmt.Sprintf("%s:%d:%d:%d", c.prefix, k.Z, k.X, k.Y)
}

func (c *RedisCache) Get(ctx context.Context, k TileCacheKey) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(k)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("redis get %s: %w", c.key(k), err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, k TileCacheKey, data []byte) error {
	if err := c.client.Set(ctx, c.key(k), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key(k), err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
