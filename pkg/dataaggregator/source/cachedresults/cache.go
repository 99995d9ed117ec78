package cachedresults

import (
	"context"
	"encoding/json"
	"time"

	"github.com/busline/busline/pkg/redis_client"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
)

const DefaultExpiration = 10 * time.Minute

type Cache struct {
	Cache *cache.Cache[string]
}

func (c *Cache) Setup() {
	c.SetupWithClient(redis_client.Client, DefaultExpiration)
}

func (c *Cache) SetupWithClient(client *redis.Client, expiration time.Duration) {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	c.Cache = cache.New[string](redisStore)
}

// Get decodes a cached JSON value into the target. The boolean is false on a cache miss.
func (c *Cache) Get(ctx context.Context, key string, target any) (bool, error) {
	if c == nil || c.Cache == nil {
		return false, nil
	}

	cachedObject, err := c.Cache.Get(ctx, key)
	if err != nil {
		return false, nil
	}

	if err := json.Unmarshal([]byte(cachedObject), target); err != nil {
		return false, err
	}

	return true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.Cache == nil {
		return nil
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Cache.Set(ctx, key, string(encoded))
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.Cache == nil {
		return nil
	}

	return c.Cache.Delete(ctx, key)
}
