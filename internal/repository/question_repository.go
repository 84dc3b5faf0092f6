package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

const questionColumns = `id, exam_id, position, subject, content, options, correct_index`

// QuestionRepository reads questions from the catalog tables.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetQuestion retrieves a question (with its correct index) by ID.
func (r *QuestionRepository) GetQuestion(ctx context.Context, id int64) (*model.Question, error) {
	row := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// ListQuestionsPage retrieves one page of an exam's questions in exam order.
func (r *QuestionRepository) ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions WHERE exam_id = $1
		 ORDER BY position, id
		 LIMIT $2 OFFSET $3`, examID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	var subject string
	if err := row.Scan(&q.ID, &q.ExamID, &q.Position, &subject, &q.Content, &q.Options, &q.CorrectIndex); err != nil {
		return nil, err
	}
	s, err := model.ParseSubject(subject)
	if err != nil {
		return nil, fmt.Errorf("question %d: %w", q.ID, err)
	}
	q.Subject = s
	return q, nil
}
