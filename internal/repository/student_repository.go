package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// StudentRepository resolves student identities.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

// GetStudent retrieves a student by ID.
func (r *StudentRepository) GetStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	s := &model.Student{}
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, first_name, last_name, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.FirstName, &s.LastName, &s.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}
