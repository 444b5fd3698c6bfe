package service

import (
	"context"
	"errors"
	"sync"

	"github.com/andrewy1n/platypus-academy/internal/events"
	"github.com/andrewy1n/platypus-academy/internal/llm"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	completed map[string]float64
	answered  map[string]int
	createErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions:  map[string]*model.Session{},
		completed: map[string]float64{},
		answered:  map[string]int{},
	}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *model.Session) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *model.Session) error {
	return f.Create(ctx, s)
}

func (f *fakeSessionRepo) MarkCompleted(ctx context.Context, id string, score float64, answered int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = score
	f.answered[id] = answered
	if s, ok := f.sessions[id]; ok {
		s.Status = model.SessionCompleted
		s.Score = &score
		s.NumQuestionsAnswered = answered
	}
	return nil
}

func (f *fakeSessionRepo) ListByUser(ctx context.Context, userID string) ([]*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

type completion struct {
	completed bool
	points    int
}

type fakeQuestionRepo struct {
	mu          sync.Mutex
	questions   map[string]*model.SessionQuestion
	order       []string
	completions map[string]completion
}

func newFakeQuestionRepo(qs ...*model.SessionQuestion) *fakeQuestionRepo {
	f := &fakeQuestionRepo{
		questions:   map[string]*model.SessionQuestion{},
		completions: map[string]completion{},
	}
	_ = f.CreateMany(context.Background(), qs)
	return f
}

func (f *fakeQuestionRepo) CreateMany(ctx context.Context, qs []*model.SessionQuestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range qs {
		cp := *q
		f.questions[q.ID] = &cp
		f.order = append(f.order, q.ID)
	}
	return nil
}

func (f *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*model.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, nil
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestionRepo) GetBySession(ctx context.Context, sessionID string) ([]*model.SessionQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SessionQuestion
	for _, id := range f.order {
		if q := f.questions[id]; q.SessionID == sessionID {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) SaveAnswer(ctx context.Context, id, answer string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return false, nil
	}
	q.StudentAnswer = &answer
	return true, nil
}

func (f *fakeQuestionRepo) UpdateCompletion(ctx context.Context, id string, completed bool, pointsEarned int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions[id] = completion{completed, pointsEarned}
	if q, ok := f.questions[id]; ok {
		q.IsCompleted = completed
		q.PointsEarned = pointsEarned
	}
	return nil
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.User
	sessions map[string][]string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}, sessions: map[string][]string{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) AddSession(ctx context.Context, userID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[userID] = append(f.sessions[userID], sessionID)
	return nil
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*model.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: map[string]*model.Conversation{}}
}

func (f *fakeConversationRepo) Save(ctx context.Context, c *model.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	cp.Messages = append([]model.AssistantMessage(nil), c.Messages...)
	f.convs[c.ID] = &cp
	return nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Messages = append([]model.AssistantMessage(nil), c.Messages...)
	return &cp, nil
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []model.GradeAttempt
}

func (f *fakeAttemptRepo) Record(ctx context.Context, a model.GradeAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeAttemptRepo) ListBySession(ctx context.Context, sessionID string) ([]model.GradeAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.GradeAttempt
	for _, a := range f.attempts {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeSessionCache struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	deleted  []string
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: map[string]*model.Session{}}
}

func (f *fakeSessionCache) Set(ctx context.Context, s *model.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionCache) Get(ctx context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionCache) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeStatsCache struct {
	mu    sync.Mutex
	stats map[string]map[model.QuestionType]model.TypeAccuracy
}

func newFakeStatsCache() *fakeStatsCache {
	return &fakeStatsCache{stats: map[string]map[model.QuestionType]model.TypeAccuracy{}}
}

func (f *fakeStatsCache) Record(ctx context.Context, userID string, t model.QuestionType, correct bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stats[userID] == nil {
		f.stats[userID] = map[model.QuestionType]model.TypeAccuracy{}
	}
	acc := f.stats[userID][t]
	acc.Total++
	if correct {
		acc.Correct++
	}
	acc.Percentage = float64(acc.Correct) / float64(acc.Total) * 100
	f.stats[userID][t] = acc
	return nil
}

func (f *fakeStatsCache) Get(ctx context.Context, userID string) (map[model.QuestionType]model.TypeAccuracy, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[model.QuestionType]model.TypeAccuracy{}
	for k, v := range f.stats[userID] {
		out[k] = v
	}
	return out, nil
}

type fakeHistory struct {
	mu   sync.Mutex
	msgs map[string][]model.AssistantMessage
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{msgs: map[string][]model.AssistantMessage{}}
}

func (f *fakeHistory) Get(ctx context.Context, id string) ([]model.AssistantMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AssistantMessage(nil), f.msgs[id]...), nil
}

func (f *fakeHistory) Append(ctx context.Context, id string, msgs ...model.AssistantMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[id] = append(f.msgs[id], msgs...)
	return nil
}

func (f *fakeHistory) Clear(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.msgs, id)
	return nil
}

type fakeRunStore struct {
	mu   sync.Mutex
	runs map[string]model.PipelineRequest
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{runs: map[string]model.PipelineRequest{}}
}

func (f *fakeRunStore) Put(ctx context.Context, id string, req model.PipelineRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[id] = req
	return nil
}

func (f *fakeRunStore) Take(ctx context.Context, id string) (*model.PipelineRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	delete(f.runs, id)
	return &req, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, evs ...events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evs...)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) kinds() []events.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Kind, len(f.events))
	for i, e := range f.events {
		out[i] = e.Value.Kind
	}
	return out
}

// fakeRunner replays a fixed event sequence
type fakeRunner struct {
	events []model.Event
}

func (f *fakeRunner) Run(ctx context.Context, req model.PipelineRequest) <-chan model.Event {
	out := make(chan model.Event)
	go func() {
		defer close(out)
		for _, ev := range f.events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

type fakeJudge struct {
	verdict model.Verdict
	err     error
	calls   int
}

func (f *fakeJudge) Judge(ctx context.Context, q model.Question, answer string) (model.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []llm.Request
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

func (f *fakeCompleter) Close() error { return nil }

func (f *fakeCompleter) last() llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reqs[len(f.reqs)-1]
}

// recordingSink collects events; it fails after failAfter sends when set
type recordingSink struct {
	events    []model.Event
	failAfter int
}

var errSinkClosed = errors.New("sink closed")

func (s *recordingSink) Send(ev model.Event) error {
	if s.failAfter > 0 && len(s.events) >= s.failAfter {
		return errSinkClosed
	}
	s.events = append(s.events, ev)
	return nil
}

func strPtr(s string) *string { return &s }

func sessionQuestion(id, sessionID string, v model.Variant, answer *string) *model.SessionQuestion {
	return &model.SessionQuestion{
		ID:            id,
		SessionID:     sessionID,
		Question:      model.Question{Data: model.QuestionData{Variant: v}, Text: "question " + id},
		StudentAnswer: answer,
		Points:        1,
	}
}
