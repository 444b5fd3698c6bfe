package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/model"
	"github.com/andrewy1n/platypus-academy/internal/repository"
)

// UserService manages student accounts
type UserService struct {
	userRepo    repository.UserRepo
	sessionRepo repository.SessionRepo
	stats       cache.StatsCache
}

func NewUserService(userRepo repository.UserRepo, sessionRepo repository.SessionRepo, stats cache.StatsCache) *UserService {
	return &UserService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		stats:       stats,
	}
}

func (s *UserService) Create(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperror.BadRequest("A valid email is required")
	}

	user := &model.User{
		ID:         uuid.New().String(),
		Email:      email,
		SessionIDs: []string{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperror.New(apperror.ErrConflict, http.StatusConflict, "User with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperror.NotFound("User not found")
	}
	return user, nil
}

// Sessions lists a user's sessions, newest first
func (s *UserService) Sessions(ctx context.Context, id string) ([]*model.Session, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	sessions, err := s.sessionRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}
	return sessions, nil
}

// Stats returns the user's accuracy per question type
func (s *UserService) Stats(ctx context.Context, id string) (map[model.QuestionType]model.TypeAccuracy, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	stats, err := s.stats.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}
