package model

// EventStatus is the discriminator of a pipeline event
type EventStatus string

const (
	StatusStarted    EventStatus = "started"
	StatusProgress   EventStatus = "progress"
	StatusItemResult EventStatus = "item_result"
	StatusCompleted  EventStatus = "completed"
	StatusError      EventStatus = "error"
	StatusFinal      EventStatus = "final"
	StatusQuestion   EventStatus = "question"
)

// Step names the part of the workflow an event belongs to
type Step string

const (
	StepSearch   Step = "search"
	StepParse    Step = "parse"
	StepValidate Step = "validate"
	StepPipeline Step = "pipeline"
	StepSession  Step = "session"
	StepGrade    Step = "grade"
)

// Event is one entry of a pipeline event stream
type Event struct {
	Status    EventStatus            `json:"status"`
	Step      Step                   `json:"step"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// Terminal is true for the single event that ends a run
func (e Event) Terminal() bool {
	return e.Status == StatusFinal || e.Status == StatusError
}

func StartedEvent(step Step, message string) Event {
	return Event{Status: StatusStarted, Step: step, Message: message}
}

func ProgressEvent(step Step, message string, current, total int) Event {
	return Event{
		Status:  StatusProgress,
		Step:    step,
		Message: message,
		Data:    map[string]interface{}{"current": current, "total": total},
	}
}

func ItemResultEvent(step Step, outcome IngestOutcome) Event {
	msg := "Parsed " + outcome.Source.URL
	if !outcome.Succeeded() {
		msg = "Failed to parse " + outcome.Source.URL
	}
	data := map[string]interface{}{
		"item_ref": outcome.Source.URL,
		"success":  outcome.Succeeded(),
	}
	if outcome.Err != "" {
		data["error"] = outcome.Err
	}
	return Event{Status: StatusItemResult, Step: step, Message: msg, Data: data}
}

func CompletedEvent(step Step, message string, summary map[string]interface{}) Event {
	return Event{Status: StatusCompleted, Step: step, Message: message, Data: summary}
}

func ErrorEvent(step Step, message, reason string) Event {
	return Event{
		Status:  StatusError,
		Step:    step,
		Message: message,
		Data:    map[string]interface{}{"error": reason},
	}
}

func QuestionEvent(message string, q Question) Event {
	return Event{
		Status:  StatusQuestion,
		Step:    StepValidate,
		Message: message,
		Data:    map[string]interface{}{"question": q},
	}
}

// FinalEvent ends a successful run with the validated questions and the
// validation counts.
func FinalEvent(message string, res ValidationResult) Event {
	return Event{
		Status:  StatusFinal,
		Step:    StepPipeline,
		Message: message,
		Data: map[string]interface{}{
			"questions":         res.Questions,
			"count":             len(res.Questions),
			"total_questions":   res.Total,
			"valid_questions":   res.Valid(),
			"invalid_questions": res.Invalid,
			"success_rate":      res.SuccessRate(),
		},
	}
}

// SessionFinalEvent re-issues a run's final event once its questions are
// stored, adding the session id. It replaces the run's final on the stream.
func SessionFinalEvent(runFinal Event, sessionID string, numQuestions int) Event {
	data := make(map[string]interface{}, len(runFinal.Data)+2)
	for k, v := range runFinal.Data {
		data[k] = v
	}
	data["session_id"] = sessionID
	data["num_questions"] = numQuestions
	return Event{
		Status:    StatusFinal,
		Step:      StepSession,
		Message:   "Session created successfully",
		Data:      data,
		SessionID: sessionID,
	}
}
