package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// SearchCache stores ranked search results by query key
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSearchCache(client *redis.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &SearchCache{client: client, ttl: ttl}
}

func (c *SearchCache) key(k string) string {
	return "search:" + k
}

func (c *SearchCache) Get(ctx context.Context, key string) ([]model.Source, error) {
	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var sources []model.Source
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *SearchCache) Set(ctx context.Context, key string, sources []model.Source) error {
	data, err := json.Marshal(sources)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), data, c.ttl).Err()
}
