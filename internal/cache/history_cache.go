package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// HistoryWindow is the number of most recent messages kept per conversation
const HistoryWindow = 40

// HistoryStore holds the recent message window of each assistant conversation
type HistoryStore interface {
	Get(ctx context.Context, conversationID string) ([]model.AssistantMessage, error)
	Append(ctx context.Context, conversationID string, msgs ...model.AssistantMessage) error
	Clear(ctx context.Context, conversationID string) error
}

type historyStore struct {
	client *redis.Client
	ttl    time.Duration
	window int64
}

func NewHistoryStore(client *redis.Client) HistoryStore {
	return &historyStore{
		client: client,
		ttl:    24 * time.Hour,
		window: HistoryWindow,
	}
}

func (c *historyStore) key(id string) string {
	return "history:" + id
}

func (c *historyStore) Get(ctx context.Context, conversationID string) ([]model.AssistantMessage, error) {
	items, err := c.client.LRange(ctx, c.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]model.AssistantMessage, 0, len(items))
	for _, item := range items {
		var m model.AssistantMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (c *historyStore) Append(ctx context.Context, conversationID string, msgs ...model.AssistantMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	args := make([]interface{}, len(msgs))
	for i, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		args[i] = data
	}
	key := c.key(conversationID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, args...)
	pipe.LTrim(ctx, key, -c.window, -1)
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *historyStore) Clear(ctx context.Context, conversationID string) error {
	return c.client.Del(ctx, c.key(conversationID)).Err()
}
