package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const proxyCacheKey = keyPrefix + "proxy"

// ProxyCache remembers the last proxy that passed verification.
type ProxyCache struct {
	client redis.UniversalClient
}

type ProxyCacheDependencies struct {
	Client redis.UniversalClient
}

func NewProxyCache(deps ProxyCacheDependencies) *ProxyCache {
	return &ProxyCache{client: deps.Client}
}

func (c *ProxyCache) Get(ctx context.Context) (string, error) {
	proxy, err := c.client.Get(ctx, proxyCacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cached proxy: %w", err)
	}

	return proxy, nil
}

func (c *ProxyCache) Put(ctx context.Context, proxy string, ttl time.Duration) error {
	if err := c.client.Set(ctx, proxyCacheKey, proxy, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache proxy: %w", err)
	}

	return nil
}

func (c *ProxyCache) Delete(ctx context.Context) error {
	if err := c.client.Del(ctx, proxyCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to drop cached proxy: %w", err)
	}

	return nil
}
