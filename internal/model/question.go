package model

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// QuestionType is the wire tag of a question variant
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "mcq"
	QuestionTypeTrueFalse      QuestionType = "tf"
	QuestionTypeNumeric        QuestionType = "numeric"
	QuestionTypeFillBlank      QuestionType = "fib"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeMatching       QuestionType = "matching"
	QuestionTypeOrdering       QuestionType = "ordering"
	QuestionTypeFreeResponse   QuestionType = "fr"
)

// Difficulty of a generated question
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Variant is one shape of question together with its answer key.
// The set is closed: only types in this package implement it.
type Variant interface {
	Type() QuestionType
	variant()
}

type MultipleChoice struct {
	Choices []string `json:"choices"`
	Answer  string   `json:"answer"`
}

type TrueFalse struct {
	Answer bool `json:"answer"`
}

type Numeric struct {
	Answer float64 `json:"answer"`
}

type FillBlank struct {
	Answer string `json:"answer"`
}

type ShortAnswer struct {
	Answer string `json:"answer"`
}

// Matching pairs items from Left with items from Right; Answer is the ordered key
type Matching struct {
	Left   []string `json:"left"`
	Right  []string `json:"right"`
	Answer []Pair   `json:"answer"`
}

// Ordering asks for Choices to be arranged into the Answer sequence
type Ordering struct {
	Choices []string `json:"choices"`
	Answer  []string `json:"answer"`
}

// FreeResponse is graded by an external judge, never by comparison
type FreeResponse struct {
	Answer string `json:"answer"`
	Points int    `json:"points"`
	Rubric string `json:"rubric"`
}

func (MultipleChoice) Type() QuestionType { return QuestionTypeMultipleChoice }
func (TrueFalse) Type() QuestionType      { return QuestionTypeTrueFalse }
func (Numeric) Type() QuestionType        { return QuestionTypeNumeric }
func (FillBlank) Type() QuestionType      { return QuestionTypeFillBlank }
func (ShortAnswer) Type() QuestionType    { return QuestionTypeShortAnswer }
func (Matching) Type() QuestionType       { return QuestionTypeMatching }
func (Ordering) Type() QuestionType       { return QuestionTypeOrdering }
func (FreeResponse) Type() QuestionType   { return QuestionTypeFreeResponse }

func (MultipleChoice) variant() {}
func (TrueFalse) variant()      {}
func (Numeric) variant()        {}
func (FillBlank) variant()      {}
func (ShortAnswer) variant()    {}
func (Matching) variant()       {}
func (Ordering) variant()       {}
func (FreeResponse) variant()   {}

// Pair is one matching pair, encoded as a two element array
type Pair struct {
	Left  string
	Right string
}

func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.Left, p.Right})
}

func (p *Pair) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("pair: %w", err)
	}
	if len(items) != 2 {
		return fmt.Errorf("pair: expected 2 items, got %d", len(items))
	}
	p.Left, p.Right = items[0], items[1]
	return nil
}

// QuestionData carries a variant with its "type" discriminator on the wire
type QuestionData struct {
	Variant
}

func (d QuestionData) MarshalJSON() ([]byte, error) {
	if d.Variant == nil {
		return []byte("null"), nil
	}
	body, err := json.Marshal(d.Variant)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(d.Variant.Type())
	fields["type"] = tag
	return json.Marshal(fields)
}

func (d *QuestionData) UnmarshalJSON(data []byte) error {
	var head struct {
		Type QuestionType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("question data: %w", err)
	}

	v, err := newVariant(head.Type)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("question data %s: %w", head.Type, err)
	}
	d.Variant = derefVariant(v)
	return nil
}

// MarshalBSON stores the variant as the same document shape used on the wire.
func (d QuestionData) MarshalBSON() ([]byte, error) {
	body, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

func (d *QuestionData) UnmarshalBSON(data []byte) error {
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return d.UnmarshalJSON(body)
}

func newVariant(t QuestionType) (interface{}, error) {
	switch t {
	case QuestionTypeMultipleChoice:
		return &MultipleChoice{}, nil
	case QuestionTypeTrueFalse:
		return &TrueFalse{}, nil
	case QuestionTypeNumeric:
		return &Numeric{}, nil
	case QuestionTypeFillBlank:
		return &FillBlank{}, nil
	case QuestionTypeShortAnswer:
		return &ShortAnswer{}, nil
	case QuestionTypeMatching:
		return &Matching{}, nil
	case QuestionTypeOrdering:
		return &Ordering{}, nil
	case QuestionTypeFreeResponse:
		return &FreeResponse{}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", t)
}

func derefVariant(v interface{}) Variant {
	switch v := v.(type) {
	case *MultipleChoice:
		return *v
	case *TrueFalse:
		return *v
	case *Numeric:
		return *v
	case *FillBlank:
		return *v
	case *ShortAnswer:
		return *v
	case *Matching:
		return *v
	case *Ordering:
		return *v
	case *FreeResponse:
		return *v
	}
	return nil
}

// Question is a validated question produced by the pipeline
type Question struct {
	Data       QuestionData      `json:"data" bson:"data"`
	Text       string            `json:"text" bson:"text"`
	Subject    string            `json:"subject" bson:"subject"`
	Topic      string            `json:"topic" bson:"topic"`
	Difficulty Difficulty        `json:"difficulty" bson:"difficulty"`
	SourceURL  string            `json:"source_url,omitempty" bson:"sourceUrl,omitempty"`
	ImageURL   string            `json:"image_url,omitempty" bson:"imageUrl,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// SessionQuestion is a question attached to a session, carrying the student's progress
type SessionQuestion struct {
	ID            string   `json:"id" bson:"_id"`
	SessionID     string   `json:"session_id" bson:"sessionId"`
	Question      Question `json:"question" bson:"question"`
	StudentAnswer *string  `json:"student_answer,omitempty" bson:"studentAnswer,omitempty"`
	IsCompleted   bool     `json:"is_completed" bson:"isCompleted"`
	Points        int      `json:"points" bson:"points"`
	PointsEarned  int      `json:"points_earned" bson:"pointsEarned"`
}
