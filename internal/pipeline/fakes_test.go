package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

type fakeSearcher struct {
	sources []model.Source
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, req model.PipelineRequest) ([]model.Source, error) {
	return f.sources, f.err
}

type fakeIngester struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
	delay map[string]time.Duration
	block bool
}

func newFakeIngester() *fakeIngester {
	return &fakeIngester{
		calls: map[string]int{},
		fail:  map[string]bool{},
		delay: map[string]time.Duration{},
	}
}

func (f *fakeIngester) Ingest(ctx context.Context, src model.Source) (model.RawPayload, error) {
	f.mu.Lock()
	f.calls[src.URL]++
	fail := f.fail[src.URL]
	delay := f.delay[src.URL]
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return model.RawPayload{}, ctx.Err()
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.RawPayload{}, ctx.Err()
		}
	}
	if fail {
		return model.RawPayload{}, errors.New("unparsable page")
	}
	return model.RawPayload{SourceURL: src.URL, Content: "questions from " + src.URL}, nil
}

func (f *fakeIngester) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeValidator struct {
	mu        sync.Mutex
	received  []model.RawPayload
	questions []model.Question
	total     int
	invalid   int
	err       error
}

func (f *fakeValidator) Validate(ctx context.Context, req model.PipelineRequest, payloads []model.RawPayload) (model.ValidationResult, error) {
	f.mu.Lock()
	f.received = append([]model.RawPayload(nil), payloads...)
	f.mu.Unlock()
	return model.ValidationResult{Questions: f.questions, Total: f.total, Invalid: f.invalid}, f.err
}

func sources(urls ...string) []model.Source {
	out := make([]model.Source, len(urls))
	for i, u := range urls {
		out[i] = model.Source{URL: u, Title: u}
	}
	return out
}

func validRequest() model.PipelineRequest {
	return model.PipelineRequest{
		Subject:           "Biology",
		Topics:            []string{"Cells"},
		NumQuestionsRange: model.CountRange{Min: 1, Max: 5},
		Mode:              model.ModePractice,
	}
}

func sampleQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			Data:       model.QuestionData{Variant: model.FillBlank{Answer: "ribosome"}},
			Text:       "Proteins are made by the ____.",
			Subject:    "Biology",
			Topic:      "Cells",
			Difficulty: model.DifficultyEasy,
		}
	}
	return qs
}

func collect(ch <-chan model.Event) []model.Event {
	var events []model.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}
