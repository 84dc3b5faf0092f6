package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ExamRepository reads exams from the catalog tables.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExam retrieves an exam by ID.
func (r *ExamRepository) GetExam(ctx context.Context, id int64) (*model.Exam, error) {
	e := &model.Exam{}
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, title, time_limit_seconds, created_at
		 FROM exams WHERE id = $1`, id,
	).Scan(&e.ID, &e.Title, &e.TimeLimitSeconds, &e.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

// ListExams retrieves every exam, oldest first.
func (r *ExamRepository) ListExams(ctx context.Context) ([]model.Exam, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, title, time_limit_seconds, created_at
		 FROM exams ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(&e.ID, &e.Title, &e.TimeLimitSeconds, &e.CreatedAt); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// CountQuestions returns the number of questions in an exam.
func (r *ExamRepository) CountQuestions(ctx context.Context, examID int64) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM questions WHERE exam_id = $1`, examID,
	).Scan(&n)
	return n, err
}

// Catalog is the read-only question catalog: exams plus their questions.
type Catalog struct {
	*ExamRepository
	*QuestionRepository
}

// NewCatalog creates a Catalog backed by pool.
func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{
		ExamRepository:     NewExamRepository(pool),
		QuestionRepository: NewQuestionRepository(pool),
	}
}
