package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/pipeline"
)

// Cache stores search results by key. A miss returns nil, nil.
type Cache interface {
	Get(ctx context.Context, key string) ([]model.Source, error)
	Set(ctx context.Context, key string, sources []model.Source) error
}

// CacheRecorder observes cache lookups
type CacheRecorder interface {
	SearchCache(hit bool)
}

// Cached serves repeated queries from a cache and collapses concurrent
// identical queries into a single upstream call.
type Cached struct {
	next     pipeline.Searcher
	cache    Cache
	group    singleflight.Group
	recorder CacheRecorder
	logger   *slog.Logger
}

func NewCached(next pipeline.Searcher, cache Cache) *Cached {
	return &Cached{
		next:   next,
		cache:  cache,
		logger: slog.Default().With("component", "search-cache"),
	}
}

func (c *Cached) SetRecorder(r CacheRecorder) {
	c.recorder = r
}

// CacheKey is stable across topic order and letter case
func CacheKey(req model.PipelineRequest) string {
	topics := make([]string, 0, len(req.Topics))
	for _, t := range req.Topics {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			topics = append(topics, t)
		}
	}
	sort.Strings(topics)
	raw := strings.ToLower(strings.TrimSpace(req.Subject)) + "|" + strings.Join(topics, "|")
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (c *Cached) Search(ctx context.Context, req model.PipelineRequest) ([]model.Source, error) {
	key := CacheKey(req)
	if hit, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("cache read failed", "error", err)
	} else if len(hit) > 0 {
		c.record(true)
		return hit, nil
	}
	c.record(false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		sources, err := c.next.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := c.cache.Set(ctx, key, sources); err != nil {
				c.logger.Warn("cache write failed", "error", err)
			}
		}
		return sources, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Source), nil
}

func (c *Cached) record(hit bool) {
	if c.recorder != nil {
		c.recorder.SearchCache(hit)
	}
}
