package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// StatsCache keeps running per-type accuracy counters for each user
type StatsCache interface {
	Record(ctx context.Context, userID string, t model.QuestionType, correct bool) error
	Get(ctx context.Context, userID string) (map[model.QuestionType]model.TypeAccuracy, error)
}

type statsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client) StatsCache {
	return &statsCache{
		client: client,
		ttl:    30 * 24 * time.Hour,
	}
}

func (c *statsCache) key(userID string) string {
	return "stats:" + userID
}

func (c *statsCache) Record(ctx context.Context, userID string, t model.QuestionType, correct bool) error {
	key := c.key(userID)
	pipe := c.client.TxPipeline()
	pipe.HIncrBy(ctx, key, string(t)+":total", 1)
	if correct {
		pipe.HIncrBy(ctx, key, string(t)+":correct", 1)
	}
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *statsCache) Get(ctx context.Context, userID string) (map[model.QuestionType]model.TypeAccuracy, error) {
	fields, err := c.client.HGetAll(ctx, c.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	return parseStats(fields), nil
}

func parseStats(fields map[string]string) map[model.QuestionType]model.TypeAccuracy {
	out := make(map[model.QuestionType]model.TypeAccuracy)
	for field, raw := range fields {
		i := strings.LastIndexByte(field, ':')
		if i <= 0 {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		t := model.QuestionType(field[:i])
		acc := out[t]
		switch field[i+1:] {
		case "total":
			acc.Total = n
		case "correct":
			acc.Correct = n
		}
		out[t] = acc
	}
	for t, acc := range out {
		if acc.Total > 0 {
			acc.Percentage = float64(acc.Correct) / float64(acc.Total) * 100
		}
		out[t] = acc
	}
	return out
}
