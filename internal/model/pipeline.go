package model

import (
	"fmt"
	"strings"
)

// Mode of the session a pipeline run is building
type Mode string

const (
	ModePractice Mode = "practice"
	ModeTest     Mode = "test"
)

// CountRange is the desired number of questions, inclusive on both ends
type CountRange struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

func (r CountRange) String() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// PipelineRequest starts one pipeline run
type PipelineRequest struct {
	Subject             string     `json:"subject"`
	Topics              []string   `json:"topics"`
	NumQuestionsRange   CountRange `json:"num_questions_range"`
	Mode                Mode       `json:"mode"`
	SpecialInstructions string     `json:"special_instructions,omitempty"`
	UserID              string     `json:"user_id,omitempty"`
}

// Validate reports the first problem that makes the request unusable
func (r *PipelineRequest) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if r.NumQuestionsRange.Min < 1 {
		return fmt.Errorf("num_questions_range min must be at least 1")
	}
	if r.NumQuestionsRange.Min > r.NumQuestionsRange.Max {
		return fmt.Errorf("num_questions_range min %d exceeds max %d", r.NumQuestionsRange.Min, r.NumQuestionsRange.Max)
	}
	switch r.Mode {
	case ModePractice, ModeTest:
	default:
		return fmt.Errorf("unknown mode %q", r.Mode)
	}
	return nil
}

// Source is one candidate webpage returned by search
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// RawPayload is the unvalidated question material extracted from one source
type RawPayload struct {
	SourceURL string `json:"source_url"`
	Content   string `json:"content"`
}

// IngestOutcome is the result of ingesting one source. Exactly one of
// Payload and Err is set.
type IngestOutcome struct {
	Source  Source      `json:"source"`
	Payload *RawPayload `json:"payload,omitempty"`
	Err     string      `json:"error,omitempty"`
}

func (o IngestOutcome) Succeeded() bool {
	return o.Payload != nil
}

// ValidationResult is the output of the validate stage. Total counts every
// candidate the validator returned and Invalid the ones it dropped; Questions
// may be shorter than Total-Invalid when trimmed to the requested maximum.
type ValidationResult struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total_questions"`
	Invalid   int        `json:"invalid_questions"`
}

// Valid is the number of candidates that decoded into questions
func (v ValidationResult) Valid() int {
	return v.Total - v.Invalid
}

// SuccessRate is Valid over Total as a one-decimal percentage
func (v ValidationResult) SuccessRate() string {
	if v.Total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(v.Valid())/float64(v.Total)*100)
}

// Stage of a pipeline run
type Stage string

const (
	StagePending    Stage = "pending"
	StageSearching  Stage = "searching"
	StageParsing    Stage = "parsing"
	StageValidating Stage = "validating"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

var stageRank = map[Stage]int{
	StagePending:    0,
	StageSearching:  1,
	StageParsing:    2,
	StageValidating: 3,
	StageCompleted:  4,
	StageFailed:     4,
}

// Terminal is true for Completed and Failed
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// PipelineState is the accumulated state of one run. Only the orchestrator
// goroutine mutates it.
type PipelineState struct {
	Request      PipelineRequest  `json:"request"`
	Sources      []Source         `json:"sources"`
	Outcomes     []IngestOutcome  `json:"outcomes"`
	Questions    []Question       `json:"questions"`
	Validation   ValidationResult `json:"validation"`
	CurrentStage Stage            `json:"current_stage"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// NewPipelineState returns a state in StagePending
func NewPipelineState(req PipelineRequest) *PipelineState {
	return &PipelineState{
		Request:      req,
		CurrentStage: StagePending,
	}
}

// Advance moves the state forward. Re-entering a stage, moving backwards, or
// leaving a terminal stage is an error.
func (s *PipelineState) Advance(to Stage) error {
	if s.CurrentStage.Terminal() {
		return fmt.Errorf("pipeline already %s", s.CurrentStage)
	}
	if stageRank[to] <= stageRank[s.CurrentStage] {
		return fmt.Errorf("invalid transition %s -> %s", s.CurrentStage, to)
	}
	s.CurrentStage = to
	return nil
}

// Fail moves the state to StageFailed and records the reason
func (s *PipelineState) Fail(reason string) {
	if s.CurrentStage.Terminal() {
		return
	}
	s.CurrentStage = StageFailed
	s.ErrorMessage = reason
}

// Payloads returns the successful payloads in the order they were folded in
func (s *PipelineState) Payloads() []RawPayload {
	var out []RawPayload
	for _, o := range s.Outcomes {
		if o.Succeeded() {
			out = append(out, *o.Payload)
		}
	}
	return out
}
