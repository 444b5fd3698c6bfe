package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/events"
	"github.com/andrewy1n/platypus-academy/internal/grader"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

// Judge scores free-response answers (implemented by EvaluatorService)
type Judge interface {
	Judge(ctx context.Context, q model.Question, answer string) (model.Verdict, error)
}

// GradeRecorder counts grades (implemented by metrics.Metrics)
type GradeRecorder interface {
	Graded(t model.QuestionType, correct bool)
}

type nopRecorder struct{}

func (nopRecorder) Graded(model.QuestionType, bool) {}

// FreeResponseRequest asks for one free-response answer to be judged
type FreeResponseRequest struct {
	Question      model.SessionQuestion `json:"question"`
	StudentAnswer string                `json:"student_answer"`
}

// GradeService grades stored answers and aggregates session reports
type GradeService struct {
	engine        *grader.Engine
	judge         Judge
	questionRepo  repository.QuestionRepo
	sessionRepo   repository.SessionRepo
	sessionCache  cache.SessionCache
	attempts      repository.AttemptRepo
	stats         cache.StatsCache
	publisher     events.Publisher
	recorder      GradeRecorder
	weakThreshold float64
	judgeTimeout  time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewGradeService creates a new grade service
func NewGradeService(
	engine *grader.Engine,
	judge Judge,
	questionRepo repository.QuestionRepo,
	sessionRepo repository.SessionRepo,
	sessionCache cache.SessionCache,
) *GradeService {
	return &GradeService{
		engine:        engine,
		judge:         judge,
		questionRepo:  questionRepo,
		sessionRepo:   sessionRepo,
		sessionCache:  sessionCache,
		publisher:     events.Nop{},
		recorder:      nopRecorder{},
		weakThreshold: grader.DefaultWeakTypeThreshold,
		judgeTimeout:  60 * time.Second,
		logger:        slog.Default().With("component", "grade"),
		now:           time.Now,
	}
}

// SetLedger enables the append-only attempt ledger
func (s *GradeService) SetLedger(attempts repository.AttemptRepo) { s.attempts = attempts }

// SetStats enables per-user accuracy counters
func (s *GradeService) SetStats(stats cache.StatsCache) { s.stats = stats }

func (s *GradeService) SetPublisher(p events.Publisher) {
	if p != nil {
		s.publisher = p
	}
}

func (s *GradeService) SetRecorder(r GradeRecorder) {
	if r != nil {
		s.recorder = r
	}
}

// SetThresholds overrides the weak-type threshold and the judge timeout
func (s *GradeService) SetThresholds(weakThreshold float64, judgeTimeout time.Duration) {
	if weakThreshold > 0 {
		s.weakThreshold = weakThreshold
	}
	if judgeTimeout > 0 {
		s.judgeTimeout = judgeTimeout
	}
}

// GradeQuestion grades the stored answer of one auto-gradable question and
// records its completion
func (s *GradeService) GradeQuestion(ctx context.Context, id string) (*model.GradeResult, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if q == nil {
		return nil, apperror.NotFound("Question not found")
	}
	if typeOf(q.Question) == model.QuestionTypeFreeResponse {
		return nil, apperror.BadRequest("Free response questions should use /grade/free-response endpoint")
	}
	answer := answerOf(q)
	if answer == "" {
		return nil, apperror.BadRequest("No student answer provided for this question")
	}

	result, err := s.engine.Grade(q.Question.Data.Variant, answer)
	if err != nil {
		return nil, fmt.Errorf("failed to grade question: %w", err)
	}

	earned := grader.EarnedPoints(result, q.Points)
	if err := s.questionRepo.UpdateCompletion(ctx, q.ID, true, earned); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	s.record(ctx, s.userOf(ctx, q.SessionID), q, answer, result, earned)
	return &result, nil
}

// GradeSession grades every question of a session, routes free-response
// answers through the judge, and marks the session completed
func (s *GradeService) GradeSession(ctx context.Context, id string) (*model.SessionReport, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, apperror.NotFound("Session not found")
	}
	questions, err := s.questionRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, apperror.NotFound("No questions found for this session")
	}
	questions = orderByIDs(questions, session.QuestionIDs)

	items := make([]grader.ReportItem, 0, len(questions))
	answered := 0
	for _, q := range questions {
		item := grader.ReportItem{QuestionID: q.ID, Type: typeOf(q.Question), Points: q.Points}

		answer := answerOf(q)
		if answer == "" {
			item.Result = grader.NoAnswer()
			items = append(items, item)
			continue
		}
		answered++

		result, err := s.gradeOne(ctx, q, answer)
		if err != nil {
			return nil, err
		}
		item.Result = result

		earned := grader.EarnedPoints(result, q.Points)
		if err := s.questionRepo.UpdateCompletion(ctx, q.ID, true, earned); err != nil {
			return nil, fmt.Errorf("failed to update question %s: %w", q.ID, err)
		}
		s.record(ctx, session.UserID, q, answer, result, earned)
		items = append(items, item)
	}

	report := grader.BuildReport(items, s.weakThreshold)
	report.SessionID = id

	if err := s.sessionRepo.MarkCompleted(ctx, id, report.Percentage, answered); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}
	if err := s.sessionCache.Delete(ctx, id); err != nil {
		s.logger.Warn("failed to evict session", "session_id", id, "error", err)
	}
	s.publish(ctx, events.KindSession, id, report)
	return &report, nil
}

func (s *GradeService) gradeOne(ctx context.Context, q *model.SessionQuestion, answer string) (model.GradeResult, error) {
	result, err := s.engine.Grade(q.Question.Data.Variant, answer)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, grader.ErrRequiresJudgment) {
		return model.GradeResult{}, fmt.Errorf("failed to grade question %s: %w", q.ID, err)
	}

	verdict, err := s.runJudge(ctx, q.Question, answer)
	if err != nil {
		s.logger.Error("judge failed", "question_id", q.ID, "error", err)
		return model.GradeResult{
			MaxPoints:     result.MaxPoints,
			Explanation:   "Failed to grade free response question",
			CorrectAnswer: result.CorrectAnswer,
		}, nil
	}
	return grader.FromVerdict(verdict), nil
}

func (s *GradeService) runJudge(ctx context.Context, q model.Question, answer string) (model.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.judgeTimeout)
	defer cancel()
	return s.judge.Judge(ctx, q, answer)
}

// GradeFreeResponse judges one free-response answer and streams the outcome.
// The question comes from the request and nothing is persisted.
func (s *GradeService) GradeFreeResponse(ctx context.Context, req FreeResponseRequest, sink EventSink) error {
	if err := sink.Send(model.StartedEvent(model.StepGrade, "Free response grader: Starting to grade student answer...")); err != nil {
		return err
	}

	q := req.Question
	fr, ok := q.Question.Data.Variant.(model.FreeResponse)
	if !ok {
		return sink.Send(model.ErrorEvent(model.StepGrade,
			"Question is not a free response question",
			"Only free response questions can be graded with this endpoint"))
	}

	verdict, err := s.runJudge(ctx, q.Question, req.StudentAnswer)
	if err != nil {
		s.logger.Error("judge failed", "question_id", q.ID, "error", err)
		return sink.Send(model.ErrorEvent(model.StepGrade, "Grading failed", err.Error()))
	}

	points := fr.Points
	if points <= 0 {
		points = DefaultQuestionPoints
	}
	result := grader.FromVerdict(verdict)
	score := grader.EarnedPoints(result, points)
	s.recorder.Graded(model.QuestionTypeFreeResponse, result.IsCorrect)

	grade := map[string]interface{}{
		"score":       score,
		"max_points":  points,
		"explanation": result.Explanation,
	}
	if err := sink.Send(model.CompletedEvent(model.StepGrade, "Grading completed successfully", grade)); err != nil {
		return err
	}
	return sink.Send(model.CompletedEvent(model.StepPipeline, "Grading pipeline completed successfully", map[string]interface{}{
		"score":          score,
		"max_points":     points,
		"explanation":    result.Explanation,
		"question_id":    q.ID,
		"question_text":  q.Question.Text,
		"student_answer": req.StudentAnswer,
	}))
}

// record fans one grade out to the ledger, the bus, metrics and user stats.
// Failures are logged; the grade itself already succeeded.
func (s *GradeService) record(ctx context.Context, userID string, q *model.SessionQuestion, answer string, result model.GradeResult, earned int) {
	t := typeOf(q.Question)
	s.recorder.Graded(t, result.IsCorrect)

	attempt := model.GradeAttempt{
		QuestionID:   q.ID,
		SessionID:    q.SessionID,
		Type:         t,
		Answer:       answer,
		IsCorrect:    result.IsCorrect,
		PointsEarned: earned,
		Points:       q.Points,
		GradedAt:     s.now().UTC(),
	}
	if s.attempts != nil {
		if err := s.attempts.Record(ctx, attempt); err != nil {
			s.logger.Warn("failed to record attempt", "question_id", q.ID, "error", err)
		}
	}
	if s.stats != nil && userID != "" {
		if err := s.stats.Record(ctx, userID, t, result.IsCorrect); err != nil {
			s.logger.Warn("failed to update stats", "user_id", userID, "error", err)
		}
	}
	s.publish(ctx, events.KindGrade, q.ID, attempt)
}

func (s *GradeService) userOf(ctx context.Context, sessionID string) string {
	if s.stats == nil {
		return ""
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil || session == nil {
		return ""
	}
	return session.UserID
}

func (s *GradeService) publish(ctx context.Context, kind events.Kind, key string, payload interface{}) {
	if err := s.publisher.Publish(ctx, events.NewEvent(kind, key, payload)); err != nil {
		s.logger.Warn("failed to publish event", "kind", kind, "error", err)
	}
}

func answerOf(q *model.SessionQuestion) string {
	if q.StudentAnswer == nil {
		return ""
	}
	return strings.TrimSpace(*q.StudentAnswer)
}
