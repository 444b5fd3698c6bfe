package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// ErrNoChunks means the page had no usable text
var ErrNoChunks = errors.New("no chunks found")

// PageFetcher returns the readable text of a URL
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ChunkStore persists chunks under an index name
type ChunkStore interface {
	Replace(ctx context.Context, name, sourceURL string, chunks []string) error
}

// Extractor pulls raw question material out of a page's chunks
type Extractor interface {
	Extract(ctx context.Context, src model.Source, indexName string, chunks []string) (string, error)
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	// MaxChunks caps how many chunks reach the extractor; all are indexed
	MaxChunks int
}

type Ingester struct {
	fetcher   PageFetcher
	store     ChunkStore
	extractor Extractor
	opts      Options
	logger    *slog.Logger
}

func NewIngester(f PageFetcher, s ChunkStore, e Extractor, opts Options) *Ingester {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1500
	}
	return &Ingester{
		fetcher:   f,
		store:     s,
		extractor: e,
		opts:      opts,
		logger:    slog.Default().With("component", "ingester"),
	}
}

func (in *Ingester) Ingest(ctx context.Context, src model.Source) (model.RawPayload, error) {
	text, err := in.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return model.RawPayload{}, err
	}
	chunks := Chunk(text, in.opts.ChunkSize, in.opts.ChunkOverlap)
	if len(chunks) == 0 {
		return model.RawPayload{}, ErrNoChunks
	}

	indexName := SanitizeIndexName(src.Title)
	if indexName == "" {
		indexName = SanitizeIndexName(src.URL)
	}
	if err := in.store.Replace(ctx, indexName, src.URL, chunks); err != nil {
		return model.RawPayload{}, fmt.Errorf("indexing failed: %w", err)
	}

	selected := chunks
	if in.opts.MaxChunks > 0 && len(selected) > in.opts.MaxChunks {
		selected = selected[:in.opts.MaxChunks]
	}
	content, err := in.extractor.Extract(ctx, src, indexName, selected)
	if err != nil {
		return model.RawPayload{}, fmt.Errorf("extract: %w", err)
	}
	in.logger.Debug("source ingested", "url", src.URL, "index", indexName, "chunks", len(chunks))
	return model.RawPayload{SourceURL: src.URL, Content: content}, nil
}
