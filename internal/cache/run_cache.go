package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// RunStore holds pipeline requests registered for a later stream attach.
// Take consumes the entry so each run starts at most once.
type RunStore interface {
	Put(ctx context.Context, runID string, req model.PipelineRequest) error
	Take(ctx context.Context, runID string) (*model.PipelineRequest, error)
}

type runStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunStore(client *redis.Client, ttl time.Duration) RunStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &runStore{client: client, ttl: ttl}
}

func (c *runStore) key(runID string) string {
	return "run:" + runID
}

func (c *runStore) Put(ctx context.Context, runID string, req model.PipelineRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(runID), data, c.ttl).Err()
}

func (c *runStore) Take(ctx context.Context, runID string) (*model.PipelineRequest, error) {
	data, err := c.client.GetDel(ctx, c.key(runID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var req model.PipelineRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, err
	}
	return &req, nil
}
