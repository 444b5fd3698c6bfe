// Package pipeline sequences the search, parse and validate stages of a
// question-generation run and reports progress as an event stream.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

const (
	DefaultSearchTimeout   = 30 * time.Second
	DefaultValidateTimeout = 120 * time.Second
	DefaultEventBuffer     = 16
)

// Config holds orchestrator timeouts and limits
type Config struct {
	SearchTimeout   time.Duration
	ValidateTimeout time.Duration
	EventBuffer     int
	// Concurrency pins the parse stage limit; zero means adaptive sizing.
	Concurrency int
}

// Orchestrator runs pipeline requests
type Orchestrator struct {
	searcher  Searcher
	ingester  Ingester
	validator Validator
	pool      *Pool
	cfg       Config
	observer  Observer
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator over the three stage collaborators
func NewOrchestrator(s Searcher, i Ingester, v Validator, pool *Pool, cfg Config) *Orchestrator {
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = DefaultSearchTimeout
	}
	if cfg.ValidateTimeout <= 0 {
		cfg.ValidateTimeout = DefaultValidateTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	if pool == nil {
		pool = NewPool(PoolConfig{})
	}
	return &Orchestrator{
		searcher:  s,
		ingester:  i,
		validator: v,
		pool:      pool,
		cfg:       cfg,
		observer:  nopObserver{},
		logger:    slog.Default().With("component", "orchestrator"),
	}
}

// SetObserver injects a telemetry observer
func (o *Orchestrator) SetObserver(obs Observer) {
	if obs != nil {
		o.observer = obs
	}
}

// Run starts a pipeline run and returns its event stream. The stream ends
// with exactly one terminal event, final or error, and is then closed.
// Cancelling ctx stops the run; events not yet delivered are dropped.
func (o *Orchestrator) Run(ctx context.Context, req model.PipelineRequest) <-chan model.Event {
	out := make(chan model.Event, o.cfg.EventBuffer)
	go func() {
		defer close(out)
		r := &run{
			o:       o,
			ctx:     ctx,
			out:     out,
			state:   model.NewPipelineState(req),
			started: time.Now(),
			logger:  o.logger.With("subject", req.Subject),
		}
		r.execute()
		if !r.state.CurrentStage.Terminal() {
			r.logger.Info("pipeline abandoned", "stage", r.state.CurrentStage)
			r.state.Fail("run cancelled")
		}
		o.observer.RunFinished(r.state.CurrentStage, time.Since(r.started))
	}()
	return out
}

// run is the single writer of one PipelineState
type run struct {
	o       *Orchestrator
	ctx     context.Context
	out     chan<- model.Event
	state   *model.PipelineState
	started time.Time
	logger  *slog.Logger
}

func (r *run) emit(ev model.Event) bool {
	select {
	case r.out <- ev:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *run) fail(step model.Step, message, reason string) {
	r.state.Fail(reason)
	r.logger.Error("pipeline failed", "step", step, "reason", reason)
	r.emit(model.ErrorEvent(step, message, reason))
}

func (r *run) advance(stage model.Stage) bool {
	if err := r.state.Advance(stage); err != nil {
		r.fail(model.StepPipeline, "Pipeline failed", err.Error())
		return false
	}
	return true
}

func (r *run) execute() {
	if err := r.state.Request.Validate(); err != nil {
		r.fail(model.StepPipeline, "Invalid pipeline request", err.Error())
		return
	}
	if !r.search() || r.ctx.Err() != nil {
		return
	}
	if !r.parse() || r.ctx.Err() != nil {
		return
	}
	r.validate()
}

func (r *run) search() bool {
	if !r.advance(model.StageSearching) {
		return false
	}
	if !r.emit(model.StartedEvent(model.StepSearch, "Search agent: Starting search for relevant URLs...")) {
		return false
	}

	begin := time.Now()
	ctx, cancel := context.WithTimeout(r.ctx, r.o.cfg.SearchTimeout)
	defer cancel()

	sources, err := guard(func() ([]model.Source, error) {
		return r.o.searcher.Search(ctx, r.state.Request)
	})
	if err == nil && len(sources) == 0 {
		err = fmt.Errorf("no sources found for %q", r.state.Request.Subject)
	}
	r.o.observer.StageFinished(model.StageSearching, err == nil, time.Since(begin))
	if err != nil {
		r.fail(model.StepSearch, "Search failed", err.Error())
		return false
	}

	r.state.Sources = sources
	return r.emit(model.CompletedEvent(model.StepSearch, fmt.Sprintf("Found %d URLs", len(sources)),
		map[string]interface{}{"url_count": len(sources)}))
}

func (r *run) parse() bool {
	if !r.advance(model.StageParsing) {
		return false
	}
	if !r.emit(model.StartedEvent(model.StepParse, "Parser agent: Starting to parse URLs for questions...")) {
		return false
	}

	begin := time.Now()
	total := len(r.state.Sources)
	results := Map(r.ctx, r.o.pool, r.state.Sources, r.o.cfg.Concurrency, r.o.ingester.Ingest)

	succeeded := 0
	for res := range results {
		outcome := model.IngestOutcome{Source: res.Item}
		if res.Err != nil {
			outcome.Err = res.Err.Error()
			r.logger.Warn("source ingest failed", "url", res.Item.URL, "error", res.Err)
		} else {
			payload := res.Value
			if payload.SourceURL == "" {
				payload.SourceURL = res.Item.URL
			}
			outcome.Payload = &payload
			succeeded++
		}
		r.state.Outcomes = append(r.state.Outcomes, outcome)
		r.o.observer.ItemFinished(outcome.Succeeded())

		if !r.emit(model.ItemResultEvent(model.StepParse, outcome)) {
			return false
		}
		done := len(r.state.Outcomes)
		if !r.emit(model.ProgressEvent(model.StepParse, fmt.Sprintf("Processed %d/%d sources", done, total), done, total)) {
			return false
		}
	}

	r.o.observer.StageFinished(model.StageParsing, succeeded > 0, time.Since(begin))
	if r.ctx.Err() != nil {
		return false
	}
	if succeeded == 0 {
		r.fail(model.StepParse, "Parsing failed", fmt.Sprintf("all %d sources failed to ingest", total))
		return false
	}

	return r.emit(model.CompletedEvent(model.StepParse, fmt.Sprintf("Generated %d question sets", succeeded),
		map[string]interface{}{"question_sets": succeeded, "failed_sources": total - succeeded}))
}

func (r *run) validate() {
	if !r.advance(model.StageValidating) {
		return
	}
	if !r.emit(model.StartedEvent(model.StepValidate, "Starting to validate questions...")) {
		return
	}

	begin := time.Now()
	ctx, cancel := context.WithTimeout(r.ctx, r.o.cfg.ValidateTimeout)
	defer cancel()

	payloads := r.state.Payloads()
	res, err := guard(func() (model.ValidationResult, error) {
		return r.o.validator.Validate(ctx, r.state.Request, payloads)
	})
	if err == nil && len(res.Questions) == 0 {
		err = fmt.Errorf("validator returned no questions from %d payloads", len(payloads))
	}
	r.o.observer.StageFinished(model.StageValidating, err == nil, time.Since(begin))
	if err != nil {
		r.fail(model.StepValidate, "Validation failed", err.Error())
		return
	}

	if seen := len(res.Questions) + res.Invalid; res.Total < seen {
		res.Total = seen
	}
	r.state.Questions = res.Questions
	r.state.Validation = res
	n := len(res.Questions)
	if !r.emit(model.CompletedEvent(model.StepValidate, fmt.Sprintf("Generated %d validated questions", n),
		map[string]interface{}{
			"total_questions":   res.Total,
			"valid_questions":   res.Valid(),
			"invalid_questions": res.Invalid,
		})) {
		return
	}
	for i, q := range res.Questions {
		if !r.emit(model.QuestionEvent(fmt.Sprintf("Question %d/%d", i+1, n), q)) {
			return
		}
	}

	if !r.advance(model.StageCompleted) {
		return
	}
	r.emit(model.FinalEvent("Pipeline completed successfully", res))
}

// guard converts a collaborator panic into an error
func guard[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("collaborator panic: %v", p)
		}
	}()
	return fn()
}
