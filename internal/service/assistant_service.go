package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/ingest"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

const assistantSystemPrompt = `You are a patient study assistant helping a student work through practice questions.
Explain concepts step by step and check understanding. Never just hand over the final answer to a question the
student has not graded yet; give hints and guide them to it instead.
Use the page excerpts when they are provided and say so when you rely on them.`

// excerptLimit is how many indexed chunks ground one reply
const excerptLimit = 3

// Replier produces one assistant turn (implemented by EvaluatorService)
type Replier interface {
	Reply(ctx context.Context, system string, history []model.AssistantMessage, prompt string) (string, error)
}

// ChunkLookup finds indexed page text relevant to a query (implemented by ingest.Index)
type ChunkLookup interface {
	Lookup(ctx context.Context, sourceURL, query string, limit int) ([]ingest.StoredChunk, error)
}

// AssistantService answers student questions in a persistent conversation
type AssistantService struct {
	replier       Replier
	history       cache.HistoryStore
	conversations repository.ConversationRepo
	questionRepo  repository.QuestionRepo
	sessionRepo   repository.SessionRepo
	chunks        ChunkLookup
	logger        *slog.Logger
	now           func() time.Time
}

func NewAssistantService(
	replier Replier,
	history cache.HistoryStore,
	conversations repository.ConversationRepo,
	questionRepo repository.QuestionRepo,
	sessionRepo repository.SessionRepo,
) *AssistantService {
	return &AssistantService{
		replier:       replier,
		history:       history,
		conversations: conversations,
		questionRepo:  questionRepo,
		sessionRepo:   sessionRepo,
		logger:        slog.Default().With("component", "assistant"),
		now:           time.Now,
	}
}

// SetChunkLookup grounds replies on the ingest index
func (s *AssistantService) SetChunkLookup(l ChunkLookup) { s.chunks = l }

// Ask sends the student's question with its context and returns the reply.
// A request without a conversation id starts a new conversation.
func (s *AssistantService) Ask(ctx context.Context, req model.AssistantRequest) (*model.AssistantResponse, error) {
	if strings.TrimSpace(req.UserQuestion) == "" {
		return nil, apperror.BadRequest("user_question is required")
	}

	conv, err := s.loadConversation(ctx, req)
	if err != nil {
		return nil, err
	}
	history, err := s.loadHistory(ctx, conv)
	if err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(ctx, req)
	reply, err := s.replier.Reply(ctx, assistantSystemPrompt, history, prompt)
	if err != nil {
		return nil, fmt.Errorf("assistant reply: %w", err)
	}

	now := s.now().UTC()
	turn := []model.AssistantMessage{
		{Role: model.RoleUser, Content: req.UserQuestion, Timestamp: now},
		{Role: model.RoleAssistant, Content: reply, Timestamp: now},
	}
	if err := s.history.Append(ctx, conv.ID, turn...); err != nil {
		s.logger.Warn("failed to append history", "conversation_id", conv.ID, "error", err)
	}

	conv.Messages = append(conv.Messages, turn...)
	conv.UpdatedAt = now
	if err := s.conversations.Save(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &model.AssistantResponse{Message: reply, ConversationID: conv.ID}, nil
}

// Conversation returns a stored conversation with all its messages
func (s *AssistantService) Conversation(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv == nil {
		return nil, apperror.NotFound("Conversation not found")
	}
	return conv, nil
}

func (s *AssistantService) loadConversation(ctx context.Context, req model.AssistantRequest) (*model.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.conversations.GetByID(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
	}

	id := req.ConversationID
	if id == "" {
		id = uuid.New().String()
	}
	now := s.now().UTC()
	return &model.Conversation{
		ID:         id,
		UserID:     req.UserID,
		QuestionID: req.QuestionID,
		SessionID:  req.SessionID,
		Messages:   []model.AssistantMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// loadHistory prefers the cached window and falls back to the stored
// conversation when the cache has expired
func (s *AssistantService) loadHistory(ctx context.Context, conv *model.Conversation) ([]model.AssistantMessage, error) {
	history, err := s.history.Get(ctx, conv.ID)
	if err != nil {
		s.logger.Warn("history cache read failed", "conversation_id", conv.ID, "error", err)
	}
	if len(history) > 0 || len(conv.Messages) == 0 {
		return history, nil
	}
	history = conv.Messages
	if len(history) > cache.HistoryWindow {
		history = history[len(history)-cache.HistoryWindow:]
	}
	if err := s.history.Append(ctx, conv.ID, history...); err != nil {
		s.logger.Warn("failed to warm history", "conversation_id", conv.ID, "error", err)
	}
	return history, nil
}

func (s *AssistantService) buildPrompt(ctx context.Context, req model.AssistantRequest) string {
	var b strings.Builder

	if req.SessionID != "" {
		session, err := s.sessionRepo.GetByID(ctx, req.SessionID)
		if err != nil {
			s.logger.Warn("failed to load session context", "session_id", req.SessionID, "error", err)
		} else if session != nil {
			fmt.Fprintf(&b, "Study session: %s (%s), mode %s\n", session.Subject, strings.Join(session.Topics, ", "), session.Mode)
		}
	}

	if req.QuestionID != "" {
		q, err := s.questionRepo.GetByID(ctx, req.QuestionID)
		if err != nil {
			s.logger.Warn("failed to load question context", "question_id", req.QuestionID, "error", err)
		} else if q != nil {
			fmt.Fprintf(&b, "Current question (%s): %s\n", typeOf(q.Question), q.Question.Text)
			if q.IsCompleted {
				fmt.Fprintf(&b, "The student has already been graded on this question; you may discuss the answer.\n")
			}
			if q.StudentAnswer != nil {
				fmt.Fprintf(&b, "Student's answer so far: %s\n", *q.StudentAnswer)
			}
			s.writeExcerpts(ctx, &b, q.Question.SourceURL, req.UserQuestion)
		}
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Student: %s", req.UserQuestion)
	return b.String()
}

func (s *AssistantService) writeExcerpts(ctx context.Context, b *strings.Builder, sourceURL, query string) {
	if s.chunks == nil || sourceURL == "" {
		return
	}
	chunks, err := s.chunks.Lookup(ctx, sourceURL, query, excerptLimit)
	if err != nil {
		s.logger.Warn("chunk lookup failed", "source_url", sourceURL, "error", err)
		return
	}
	if len(chunks) == 0 {
		return
	}
	fmt.Fprintf(b, "Page excerpts from %s:\n", sourceURL)
	for _, c := range chunks {
		fmt.Fprintf(b, "---\n%s\n", c.Text)
	}
}
