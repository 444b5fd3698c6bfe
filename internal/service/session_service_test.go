package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/events"
	"github.com/andrewy1n/platypus-academy/internal/model"
)

func validRequest() model.PipelineRequest {
	return model.PipelineRequest{
		Subject:           "chemistry",
		Topics:            []string{"stoichiometry"},
		NumQuestionsRange: model.CountRange{Min: 1, Max: 3},
		Mode:              model.ModePractice,
		UserID:            "u1",
	}
}

func generated() []model.Question {
	return []model.Question{
		{Data: model.QuestionData{Variant: model.TrueFalse{Answer: true}}, Text: "Moles are conserved."},
		{Data: model.QuestionData{Variant: model.Numeric{Answer: 2}}, Text: "How many H atoms in H2?"},
	}
}

type sessionFixture struct {
	svc       *SessionService
	sessions  *fakeSessionRepo
	questions *fakeQuestionRepo
	users     *fakeUserRepo
	cache     *fakeSessionCache
	pub       *fakePublisher
}

func newSessionFixture(runEvents ...model.Event) *sessionFixture {
	f := &sessionFixture{
		sessions:  newFakeSessionRepo(),
		questions: newFakeQuestionRepo(),
		users:     newFakeUserRepo(),
		cache:     newFakeSessionCache(),
		pub:       &fakePublisher{},
	}
	f.svc = NewSessionService(&fakeRunner{events: runEvents}, f.sessions, f.questions, f.users, f.cache)
	f.svc.SetPublisher(f.pub)
	return f
}

func TestSessionCreatePersistsFinalQuestions(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(
		model.StartedEvent(model.StepSearch, "Searching"),
		model.FinalEvent("Pipeline completed", model.ValidationResult{Questions: generated(), Total: 3, Invalid: 1}),
	)
	sink := &recordingSink{}

	session, err := f.svc.Create(context.Background(), validRequest(), sink)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if session == nil {
		t.Fatal("expected a session")
	}
	if session.NumQuestions != 2 || len(session.QuestionIDs) != 2 {
		t.Fatalf("session has %d questions (%d ids), want 2", session.NumQuestions, len(session.QuestionIDs))
	}
	if session.Status != model.SessionInProgress {
		t.Fatalf("status = %s, want in_progress", session.Status)
	}

	if len(sink.events) != 2 || terminals(sink.events) != 1 {
		t.Fatalf("sink got %d events with %d terminal, want 2 with 1", len(sink.events), terminals(sink.events))
	}
	last := sink.events[1]
	if last.Status != model.StatusFinal || last.Step != model.StepSession || last.SessionID != session.ID {
		t.Fatalf("last event = %+v", last)
	}
	if last.Data["session_id"] != session.ID || last.Data["num_questions"] != 2 {
		t.Fatalf("final data = %v", last.Data)
	}
	if qs, _ := last.Data["questions"].([]model.Question); len(qs) != 2 {
		t.Fatalf("final carries %d questions, want 2", len(qs))
	}
	if last.Data["success_rate"] != "66.7%" {
		t.Fatalf("success_rate = %v", last.Data["success_rate"])
	}

	stored, _ := f.svc.Questions(context.Background(), session.ID)
	if len(stored) != 2 {
		t.Fatalf("stored %d questions, want 2", len(stored))
	}
	for i, q := range stored {
		if q.ID != session.QuestionIDs[i] {
			t.Fatalf("question %d = %s, want %s", i, q.ID, session.QuestionIDs[i])
		}
		if q.Points != DefaultQuestionPoints {
			t.Fatalf("question points = %d", q.Points)
		}
	}

	if got := f.users.sessions["u1"]; len(got) != 1 || got[0] != session.ID {
		t.Fatalf("user sessions = %v", got)
	}
	if _, ok := f.cache.sessions[session.ID]; !ok {
		t.Fatal("session was not cached")
	}
	if kinds := f.pub.kinds(); len(kinds) != 1 || kinds[0] != events.KindSession {
		t.Fatalf("published %v", kinds)
	}
}

func TestSessionCreatePipelineError(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(
		model.StartedEvent(model.StepSearch, "Searching"),
		model.ErrorEvent(model.StepSearch, "Search failed", "no results"),
	)
	sink := &recordingSink{}

	session, err := f.svc.Create(context.Background(), validRequest(), sink)
	if err != nil || session != nil {
		t.Fatalf("Create = %v, %v; want nil, nil", session, err)
	}
	if len(sink.events) != 2 || sink.events[1].Status != model.StatusError {
		t.Fatalf("sink events = %+v", sink.events)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatal("a failed run must not persist a session")
	}
	if kinds := f.pub.kinds(); len(kinds) != 1 || kinds[0] != events.KindPipeline {
		t.Fatalf("published %v", kinds)
	}
}

func TestSessionCreatePersistFailureEndsWithError(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(
		model.StartedEvent(model.StepSearch, "Searching"),
		model.FinalEvent("Pipeline completed", model.ValidationResult{Questions: generated(), Total: 2}),
	)
	f.sessions.createErr = errors.New("mongo down")
	sink := &recordingSink{}

	session, err := f.svc.Create(context.Background(), validRequest(), sink)
	if err == nil || session != nil {
		t.Fatalf("Create = %v, %v; want an error", session, err)
	}
	if terminals(sink.events) != 1 {
		t.Fatalf("got %d terminal events, want 1: %+v", terminals(sink.events), sink.events)
	}
	last := sink.events[len(sink.events)-1]
	if last.Status != model.StatusError || last.Step != model.StepSession {
		t.Fatalf("last event = %+v", last)
	}
	for _, ev := range sink.events {
		if ev.Status == model.StatusFinal {
			t.Fatalf("final event sent although the session was not stored: %+v", ev)
		}
	}
}

func TestSessionCreateStopsWhenSinkFails(t *testing.T) {
	t.Parallel()

	f := newSessionFixture(
		model.StartedEvent(model.StepSearch, "Searching"),
		model.ProgressEvent(model.StepParse, "Parsing", 1, 2),
		model.FinalEvent("Pipeline completed", model.ValidationResult{Questions: generated(), Total: 2}),
	)

	_, err := f.svc.Create(context.Background(), validRequest(), &recordingSink{failAfter: 1})
	if !errors.Is(err, errSinkClosed) {
		t.Fatalf("err = %v, want sink error", err)
	}
	if len(f.sessions.sessions) != 0 {
		t.Fatal("session persisted after client left")
	}
}

func TestSessionCreateRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	f := newSessionFixture()
	req := validRequest()
	req.Subject = " "

	_, err := f.svc.Create(context.Background(), req, Discard)
	if got := apperror.HTTPStatus(err); got != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", got)
	}
}

func TestSessionGetFallsBackToRepo(t *testing.T) {
	t.Parallel()

	f := newSessionFixture()
	_ = f.sessions.Create(context.Background(), &model.Session{ID: "s1", Subject: "math"})

	got, err := f.svc.Get(context.Background(), "s1")
	if err != nil || got.Subject != "math" {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, ok := f.cache.sessions["s1"]; !ok {
		t.Fatal("repo hit was not cached")
	}

	_, err = f.svc.Get(context.Background(), "missing")
	if apperror.HTTPStatus(err) != http.StatusNotFound || apperror.Message(err) != "Session not found" {
		t.Fatalf("missing session err = %v", err)
	}
}

func TestOrderByIDs(t *testing.T) {
	t.Parallel()

	qs := []*model.SessionQuestion{{ID: "c"}, {ID: "x"}, {ID: "a"}, {ID: "b"}}
	got := orderByIDs(qs, []string{"a", "b", "c"})
	want := []string{"a", "b", "c", "x"}
	for i, q := range got {
		if q.ID != want[i] {
			t.Fatalf("order = %v, want %v", ids(got), want)
		}
	}
}

func terminals(evs []model.Event) int {
	n := 0
	for _, ev := range evs {
		if ev.Terminal() {
			n++
		}
	}
	return n
}

func ids(qs []*model.SessionQuestion) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
