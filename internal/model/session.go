package model

import "time"

type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Session is a set of generated questions a student works through
type Session struct {
	ID                   string        `json:"id" bson:"_id"`
	UserID               string        `json:"user_id,omitempty" bson:"userId,omitempty"`
	Subject              string        `json:"subject" bson:"subject"`
	Topics               []string      `json:"topics" bson:"topics"`
	QuestionIDs          []string      `json:"questions" bson:"questionIds"`
	NumQuestions         int           `json:"num_questions" bson:"numQuestions"`
	NumQuestionsAnswered int           `json:"num_questions_answered" bson:"numQuestionsAnswered"`
	Status               SessionStatus `json:"status" bson:"status"`
	Mode                 Mode          `json:"mode" bson:"mode"`
	Score                *float64      `json:"score,omitempty" bson:"score,omitempty"`
	CreatedAt            time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt            time.Time     `json:"updated_at" bson:"updatedAt"`
}
