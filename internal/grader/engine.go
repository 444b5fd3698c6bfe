// Package grader scores student answers against question answer keys.
// Every comparator is deterministic and performs no I/O.
package grader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// ErrRequiresJudgment is returned for free-response questions, which are
// never scored by comparison.
var ErrRequiresJudgment = errors.New("free response requires external judgment")

const (
	DefaultNumericTolerance    = 0.01
	DefaultSimilarityThreshold = 0.70
	DefaultWeakTypeThreshold   = 60.0
)

// Options tunes the comparators
type Options struct {
	// NumericTolerance is relative to the expected value; an expected value
	// of zero always requires an exact match. Zero or negative selects
	// DefaultNumericTolerance.
	NumericTolerance float64
	// ExactNumeric requires numeric answers to match exactly and overrides
	// NumericTolerance.
	ExactNumeric bool
	// SimilarityThreshold is the minimum short-answer similarity ratio.
	SimilarityThreshold float64
}

func DefaultOptions() Options {
	return Options{
		NumericTolerance:    DefaultNumericTolerance,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// Engine dispatches a question variant to its comparator
type Engine struct {
	opts Options
}

// NewEngine creates an engine; zero options fall back to defaults
func NewEngine(opts Options) *Engine {
	switch {
	case opts.ExactNumeric:
		opts.NumericTolerance = 0
	case opts.NumericTolerance <= 0:
		opts.NumericTolerance = DefaultNumericTolerance
	}
	if opts.SimilarityThreshold <= 0 || opts.SimilarityThreshold > 1 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &Engine{opts: opts}
}

// NoAnswer is the result for an empty or whitespace-only answer
func NoAnswer() model.GradeResult {
	return model.GradeResult{
		MaxPoints:     maxPoints,
		Explanation:   "No answer provided",
		CorrectAnswer: "Answer required",
	}
}

// ManualGrading is the result paired with ErrRequiresJudgment
func ManualGrading() model.GradeResult {
	return model.GradeResult{
		MaxPoints:     maxPoints,
		Explanation:   "Free response questions require manual grading",
		CorrectAnswer: "Manual grading required",
	}
}

// Grade scores answer against the variant's key. Malformed answers are
// graded incorrect with an explanation; the only error is
// ErrRequiresJudgment, or an unsupported variant.
func (e *Engine) Grade(v model.Variant, answer string) (model.GradeResult, error) {
	if strings.TrimSpace(answer) == "" {
		return NoAnswer(), nil
	}

	switch key := v.(type) {
	case model.MultipleChoice:
		return compareMultipleChoice(key, answer), nil
	case model.TrueFalse:
		return compareTrueFalse(key, answer), nil
	case model.Numeric:
		return compareNumeric(key, answer, e.opts.NumericTolerance), nil
	case model.FillBlank:
		return compareFillBlank(key, answer), nil
	case model.ShortAnswer:
		return compareShortAnswer(key, answer, e.opts.SimilarityThreshold), nil
	case model.Matching:
		return compareMatching(key, answer), nil
	case model.Ordering:
		return compareOrdering(key, answer), nil
	case model.FreeResponse:
		return ManualGrading(), ErrRequiresJudgment
	}
	return model.GradeResult{}, fmt.Errorf("unsupported question variant %T", v)
}

// FromVerdict converts a free-response judgment into a result. The score is
// clamped to [0, 1] and any positive score counts as correct.
func FromVerdict(v model.Verdict) model.GradeResult {
	score := v.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return model.GradeResult{
		IsCorrect:     score > 0,
		PointsEarned:  score,
		MaxPoints:     maxPoints,
		Explanation:   v.Explanation,
		CorrectAnswer: "Graded by rubric",
	}
}
