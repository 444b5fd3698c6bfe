package pipeline

import (
	"context"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// Searcher finds candidate sources for a request
type Searcher interface {
	Search(ctx context.Context, req model.PipelineRequest) ([]model.Source, error)
}

// Ingester extracts raw question material from one source
type Ingester interface {
	Ingest(ctx context.Context, src model.Source) (model.RawPayload, error)
}

// Validator turns raw payloads into validated questions and reports how many
// candidates it dropped
type Validator interface {
	Validate(ctx context.Context, req model.PipelineRequest, payloads []model.RawPayload) (model.ValidationResult, error)
}

// Observer receives run telemetry. Implementations must not block.
type Observer interface {
	StageFinished(stage model.Stage, ok bool, elapsed time.Duration)
	ItemFinished(ok bool)
	RunFinished(stage model.Stage, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) StageFinished(model.Stage, bool, time.Duration) {}
func (nopObserver) ItemFinished(bool)                              {}
func (nopObserver) RunFinished(model.Stage, time.Duration)         {}
