package model

import "time"

// GradeResult is the outcome of grading one answer
type GradeResult struct {
	IsCorrect     bool    `json:"is_correct"`
	PointsEarned  float64 `json:"points_earned"`
	MaxPoints     float64 `json:"max_points"`
	Explanation   string  `json:"explanation"`
	CorrectAnswer string  `json:"correct_answer"`
}

// Fraction is PointsEarned relative to MaxPoints, in [0, 1]
func (r GradeResult) Fraction() float64 {
	if r.MaxPoints <= 0 {
		return 0
	}
	return r.PointsEarned / r.MaxPoints
}

// Verdict is a free-response judgment; Score is in [0, 1]
type Verdict struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// GradedQuestion is one line of a session report
type GradedQuestion struct {
	QuestionID   string       `json:"question_id"`
	Type         QuestionType `json:"type"`
	Points       int          `json:"points"`
	PointsEarned int          `json:"points_earned"`
	IsCorrect    bool         `json:"is_correct"`
	Explanation  string       `json:"explanation"`
}

// TypeAccuracy is the share of correct answers for one question type
type TypeAccuracy struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// SessionReport aggregates graded questions of a session
type SessionReport struct {
	SessionID    string                        `json:"session_id,omitempty"`
	TotalPoints  int                           `json:"total_points"`
	PointsEarned int                           `json:"points_earned"`
	Percentage   float64                       `json:"percentage"`
	Summary      string                        `json:"summary"`
	Improvements []string                      `json:"improvements"`
	TypeAccuracy map[QuestionType]TypeAccuracy `json:"type_accuracy"`
	WeakTypes    []QuestionType                `json:"weak_types,omitempty"`
	Questions    []GradedQuestion              `json:"questions"`
}

// GradeAttempt is an append-only record of one grading call
type GradeAttempt struct {
	QuestionID   string       `json:"question_id"`
	SessionID    string       `json:"session_id"`
	Type         QuestionType `json:"type"`
	Answer       string       `json:"answer"`
	IsCorrect    bool         `json:"is_correct"`
	PointsEarned int          `json:"points_earned"`
	Points       int          `json:"points"`
	GradedAt     time.Time    `json:"graded_at"`
}
