package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ResponseRepository handles student_responses data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert creates or overwrites the response for (session, question).
// uc_session_question guarantees a single row per pair.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *model.Response) error {
	return conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO student_responses (session_id, question_id, chosen_index, is_correct, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET chosen_index = EXCLUDED.chosen_index,
		     is_correct = EXCLUDED.is_correct,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id`,
		resp.SessionID, resp.QuestionID, resp.ChosenIndex, resp.IsCorrect, resp.UpdatedAt,
	).Scan(&resp.ID)
}

// ChosenFor returns the chosen index per question for the given questions of a session.
// Questions without a response are absent from the map.
func (r *ResponseRepository) ChosenFor(ctx context.Context, sessionID uuid.UUID, questionIDs []int64) (map[int64]*int, error) {
	chosen := make(map[int64]*int, len(questionIDs))
	if len(questionIDs) == 0 {
		return chosen, nil
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT question_id, chosen_index
		 FROM student_responses
		 WHERE session_id = $1 AND question_id = ANY($2)`, sessionID, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			qid int64
			idx *int
		)
		if err := rows.Scan(&qid, &idx); err != nil {
			return nil, err
		}
		chosen[qid] = idx
	}
	return chosen, rows.Err()
}

// CountAnswered counts responses with a non-null chosen index.
func (r *ResponseRepository) CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM student_responses
		 WHERE session_id = $1 AND chosen_index IS NOT NULL`, sessionID,
	).Scan(&n)
	return n, err
}

// ListScoredItems returns each stored response of the session joined with its
// question, in exam order. Questions never answered have no row.
func (r *ResponseRepository) ListScoredItems(ctx context.Context, sessionID uuid.UUID) ([]model.ScoredItem, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT q.id, q.subject, q.correct_index, sr.chosen_index
		 FROM student_responses sr
		 JOIN questions q ON q.id = sr.question_id
		 WHERE sr.session_id = $1
		 ORDER BY q.position, q.id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.ScoredItem
	for rows.Next() {
		var (
			it      model.ScoredItem
			subject string
		)
		if err := rows.Scan(&it.QuestionID, &subject, &it.CorrectIndex, &it.ChosenIndex); err != nil {
			return nil, err
		}
		if it.Subject, err = model.ParseSubject(subject); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
