package repository

import (
	"context"
	"database/sql"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

// AttemptRepo is the append-only ledger of grading calls
type AttemptRepo interface {
	Record(ctx context.Context, a model.GradeAttempt) error
	ListBySession(ctx context.Context, sessionID string) ([]model.GradeAttempt, error)
}

type attemptRepo struct {
	db *sql.DB
}

// NewAttemptRepo expects a database/sql handle opened with the pgx driver
func NewAttemptRepo(db *sql.DB) AttemptRepo {
	return &attemptRepo{db: db}
}

// EnsureAttemptSchema creates the ledger table when it does not exist
func EnsureAttemptSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{`
create table if not exists grade_attempts (
  id bigserial primary key,
  question_id text not null,
  session_id text not null,
  question_type text not null,
  answer text not null,
  is_correct boolean not null,
  points_earned integer not null,
  points integer not null,
  graded_at timestamptz not null default now()
)`,
		`create index if not exists grade_attempts_session_idx on grade_attempts(session_id, graded_at)`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (r *attemptRepo) Record(ctx context.Context, a model.GradeAttempt) error {
	const q = `
insert into grade_attempts(question_id, session_id, question_type, answer, is_correct, points_earned, points, graded_at)
values ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.db.ExecContext(ctx, q, a.QuestionID, a.SessionID, string(a.Type), a.Answer, a.IsCorrect, a.PointsEarned, a.Points, a.GradedAt)
	return err
}

func (r *attemptRepo) ListBySession(ctx context.Context, sessionID string) ([]model.GradeAttempt, error) {
	const q = `
select question_id, session_id, question_type, answer, is_correct, points_earned, points, graded_at
from grade_attempts
where session_id=$1
order by graded_at asc, id asc`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.GradeAttempt
	for rows.Next() {
		var (
			a  model.GradeAttempt
			qt string
		)
		if err := rows.Scan(&a.QuestionID, &a.SessionID, &qt, &a.Answer, &a.IsCorrect, &a.PointsEarned, &a.Points, &a.GradedAt); err != nil {
			return nil, err
		}
		a.Type = model.QuestionType(qt)
		out = append(out, a)
	}
	return out, rows.Err()
}
