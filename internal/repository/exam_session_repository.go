package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const sessionColumns = `id, exam_id, student_id, status, started_at, submitted_at, completed_at`

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// CreateActive inserts a STARTED session. It returns false without error when the
// student already holds a STARTED session (uq_exam_sessions_active_student).
func (r *ExamSessionRepository) CreateActive(ctx context.Context, s *model.ExamSession) (bool, error) {
	var id uuid.UUID
	err := conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO exam_sessions (id, exam_id, student_id, status, started_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (student_id) WHERE status = 'STARTED' DO NOTHING
		 RETURNING id`,
		s.ID, s.ExamID, s.StudentID, model.SessionStatusStarted, s.StartedAt,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.Status = model.SessionStatusStarted
	return true, nil
}

// GetByID retrieves a session by ID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id)
}

// LockByID retrieves a session and holds a share lock on it until the surrounding
// transaction ends, so status writes from other transactions wait.
func (r *ExamSessionRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1 FOR SHARE`, id)
}

// GetActiveByStudent retrieves the student's STARTED session, if any.
func (r *ExamSessionRepository) GetActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error) {
	return r.getOne(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1 AND status = 'STARTED'`, studentID)
}

// MarkSubmitted moves a STARTED session to SUBMITTED. It returns false when the
// session is missing or not STARTED at write time.
func (r *ExamSessionRepository) MarkSubmitted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'SUBMITTED', submitted_at = $2
		 WHERE id = $1 AND status = 'STARTED'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCompleted moves a SUBMITTED session to COMPLETED.
func (r *ExamSessionRepository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE exam_sessions
		 SET status = 'COMPLETED', completed_at = $2
		 WHERE id = $1 AND status = 'SUBMITTED'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ExpireStartedBefore marks every STARTED session that began strictly before cutoff
// as EXPIRED and returns the affected sessions. Postgres re-checks the predicate on
// rows locked by concurrent writers, so a session submitted meanwhile is skipped.
func (r *ExamSessionRepository) ExpireStartedBefore(ctx context.Context, cutoff time.Time) ([]model.ExamSession, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`UPDATE exam_sessions
		 SET status = 'EXPIRED'
		 WHERE status = 'STARTED' AND started_at < $1
		 RETURNING `+sessionColumns, cutoff)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// ListByStudent retrieves all sessions for a given student, newest first.
func (r *ExamSessionRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func (r *ExamSessionRepository) getOne(ctx context.Context, query string, arg any) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := conn(ctx, r.pool).QueryRow(ctx, query, arg).
		Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.StartedAt, &s.SubmittedAt, &s.CompletedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]model.ExamSession, error) {
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.StartedAt, &s.SubmittedAt, &s.CompletedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
