package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidTicket = errors.New("invalid or expired ticket")

// RunClaims scope a ticket to one pending pipeline run
type RunClaims struct {
	RunID string `json:"runId"`
	jwt.RegisteredClaims
}

// TicketService signs the short-lived tickets that let a WebSocket client
// attach to a pipeline run
type TicketService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTicketService creates a new ticket service
func NewTicketService(secret string, ttl time.Duration) *TicketService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TicketService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates a ticket for runID
func (s *TicketService) Issue(runID string) (string, error) {
	now := s.now()
	claims := &RunClaims{
		RunID: runID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate checks a ticket and that it was issued for runID
func (s *TicketService) Validate(ticket, runID string) (*RunClaims, error) {
	token, err := jwt.ParseWithClaims(ticket, &RunClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidTicket
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidTicket
	}

	claims, ok := token.Claims.(*RunClaims)
	if !ok || !token.Valid || claims.RunID != runID {
		return nil, ErrInvalidTicket
	}

	return claims, nil
}
