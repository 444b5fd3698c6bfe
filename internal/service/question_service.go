package service

import (
	"context"
	"fmt"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

// QuestionService reads session questions and stores student answers
type QuestionService struct {
	questionRepo repository.QuestionRepo
}

func NewQuestionService(questionRepo repository.QuestionRepo) *QuestionService {
	return &QuestionService{questionRepo: questionRepo}
}

func (s *QuestionService) Get(ctx context.Context, id string) (*model.SessionQuestion, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if q == nil {
		return nil, apperror.NotFound("Question not found")
	}
	return q, nil
}

// SaveAnswer stores the student's latest answer; it does not grade it
func (s *QuestionService) SaveAnswer(ctx context.Context, id, answer string) error {
	found, err := s.questionRepo.SaveAnswer(ctx, id, answer)
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	if !found {
		return apperror.NotFound("Question not found")
	}
	return nil
}
