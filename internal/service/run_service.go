package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/andrewy1n/platypus-academy/internal/apperror"
	"github.com/andrewy1n/platypus-academy/internal/cache"
	"github.com/andrewy1n/platypus-academy/internal/model"
)

// PendingRun is returned when a run is registered for a WebSocket client
type PendingRun struct {
	RunID  string `json:"run_id"`
	Ticket string `json:"ticket"`
}

// RunService parks pipeline requests until a WebSocket client attaches
type RunService struct {
	runs    cache.RunStore
	tickets *TicketService
}

func NewRunService(runs cache.RunStore, tickets *TicketService) *RunService {
	return &RunService{runs: runs, tickets: tickets}
}

// Register validates req and stores it under a new run id
func (s *RunService) Register(ctx context.Context, req model.PipelineRequest) (*PendingRun, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	runID := uuid.New().String()
	ticket, err := s.tickets.Issue(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue ticket: %w", err)
	}
	if err := s.runs.Put(ctx, runID, req); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}
	return &PendingRun{RunID: runID, Ticket: ticket}, nil
}

// Claim checks the ticket and removes the pending request, so a run can be
// attached at most once
func (s *RunService) Claim(ctx context.Context, runID, ticket string) (*model.PipelineRequest, error) {
	if _, err := s.tickets.Validate(ticket, runID); err != nil {
		return nil, apperror.New(apperror.ErrUnauthorized, http.StatusUnauthorized, err.Error())
	}
	req, err := s.runs.Take(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if req == nil {
		return nil, apperror.NotFound("Run not found or already started")
	}
	return req, nil
}
