package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/events"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

// DefaultQuestionPoints is the weight of every question in a new session
const DefaultQuestionPoints = 1

// Runner starts a pipeline run (implemented by pipeline.Orchestrator)
type Runner interface {
	Run(ctx context.Context, req model.PipelineRequest) <-chan model.Event
}

// SessionService builds practice sessions from pipeline runs
type SessionService struct {
	runner       Runner
	sessionRepo  repository.SessionRepo
	questionRepo repository.QuestionRepo
	userRepo     repository.UserRepo
	sessionCache cache.SessionCache
	publisher    events.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	runner Runner,
	sessionRepo repository.SessionRepo,
	questionRepo repository.QuestionRepo,
	userRepo repository.UserRepo,
	sessionCache cache.SessionCache,
) *SessionService {
	return &SessionService{
		runner:       runner,
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		userRepo:     userRepo,
		sessionCache: sessionCache,
		publisher:    events.Nop{},
		logger:       slog.Default().With("component", "session"),
		now:          time.Now,
	}
}

// SetPublisher sets where session and pipeline events are published
func (s *SessionService) SetPublisher(p events.Publisher) {
	if p != nil {
		s.publisher = p
	}
}

// Create runs the pipeline for req, forwarding its events to sink. The run's
// final event is held back until the questions are stored as a new session;
// the stream then ends with a single final carrying the questions and the
// session id, or with an error when storing fails. A failed run returns
// nil, nil: the failure was already reported through sink.
func (s *SessionService) Create(ctx context.Context, req model.PipelineRequest, sink EventSink) (*model.Session, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.BadRequest(err.Error())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var final *model.Event
	for ev := range s.runner.Run(ctx, req) {
		if ev.Status == model.StatusFinal {
			held := ev
			final = &held
			continue
		}
		if err := sink.Send(ev); err != nil {
			return nil, fmt.Errorf("stream closed: %w", err)
		}
		if ev.Status == model.StatusError {
			s.publish(ctx, events.KindPipeline, "", ev)
			return nil, nil
		}
	}
	if final == nil {
		return nil, ctx.Err()
	}

	questions, _ := final.Data["questions"].([]model.Question)
	session, err := s.persist(ctx, req, questions)
	if err != nil {
		s.logger.Error("failed to persist session", "error", err)
		ev := model.ErrorEvent(model.StepSession, "Failed to save session", err.Error())
		if sendErr := sink.Send(ev); sendErr != nil {
			s.logger.Warn("failed to report session error", "error", sendErr)
		}
		return nil, err
	}

	if err := sink.Send(model.SessionFinalEvent(*final, session.ID, session.NumQuestions)); err != nil {
		s.logger.Warn("client left before session event", "session_id", session.ID, "error", err)
	}
	s.publish(ctx, events.KindSession, session.ID, session)
	return session, nil
}

func (s *SessionService) persist(ctx context.Context, req model.PipelineRequest, questions []model.Question) (*model.Session, error) {
	now := s.now()
	session := &model.Session{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Subject:     req.Subject,
		Topics:      req.Topics,
		QuestionIDs: make([]string, 0, len(questions)),
		Status:      model.SessionInProgress,
		Mode:        req.Mode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if session.Topics == nil {
		session.Topics = []string{}
	}

	docs := make([]*model.SessionQuestion, 0, len(questions))
	for _, q := range questions {
		sq := &model.SessionQuestion{
			ID:        uuid.New().String(),
			SessionID: session.ID,
			Question:  q,
			Points:    DefaultQuestionPoints,
		}
		docs = append(docs, sq)
		session.QuestionIDs = append(session.QuestionIDs, sq.ID)
	}
	session.NumQuestions = len(docs)

	if len(docs) > 0 {
		if err := s.questionRepo.CreateMany(ctx, docs); err != nil {
			return nil, fmt.Errorf("failed to store questions: %w", err)
		}
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	if req.UserID != "" {
		if err := s.userRepo.AddSession(ctx, req.UserID, session.ID); err != nil {
			return nil, fmt.Errorf("failed to link session to user: %w", err)
		}
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("failed to cache session", "session_id", session.ID, "error", err)
	}
	return session, nil
}

// Get returns a session by id
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionCache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("session cache read failed", "session_id", id, "error", err)
	}
	if session != nil {
		return session, nil
	}

	session, err = s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperror.NotFound("Session not found")
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		s.logger.Warn("failed to cache session", "session_id", id, "error", err)
	}
	return session, nil
}

// Questions returns the questions of a session in the session's order
func (s *SessionService) Questions(ctx context.Context, id string) ([]*model.SessionQuestion, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	questions, err := s.questionRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return orderByIDs(questions, session.QuestionIDs), nil
}

// orderByIDs sorts questions to follow ids; questions not listed keep their
// relative order at the end
func orderByIDs(questions []*model.SessionQuestion, ids []string) []*model.SessionQuestion {
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	out := make([]*model.SessionQuestion, 0, len(questions))
	var rest []*model.SessionQuestion
	slots := make([]*model.SessionQuestion, len(ids))
	for _, q := range questions {
		if i, ok := rank[q.ID]; ok {
			slots[i] = q
			continue
		}
		rest = append(rest, q)
	}
	for _, q := range slots {
		if q != nil {
			out = append(out, q)
		}
	}
	return append(out, rest...)
}

func (s *SessionService) publish(ctx context.Context, kind events.Kind, key string, payload interface{}) {
	if err := s.publisher.Publish(ctx, events.NewEvent(kind, key, payload)); err != nil {
		s.logger.Warn("failed to publish event", "kind", kind, "error", err)
	}
}
