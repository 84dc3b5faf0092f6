package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Catalog is the read-only source of exams and questions.
type Catalog interface {
	GetExam(ctx context.Context, examID int64) (*model.Exam, error)
	ListExams(ctx context.Context) ([]model.Exam, error)
	GetQuestion(ctx context.Context, questionID int64) (*model.Question, error)
	ListQuestionsPage(ctx context.Context, examID int64, limit, offset int) ([]model.Question, error)
	CountQuestions(ctx context.Context, examID int64) (int, error)
}

// StudentDirectory resolves student identities.
type StudentDirectory interface {
	GetStudent(ctx context.Context, studentID uuid.UUID) (*model.Student, error)
}

// SessionStore persists exam sessions. Status writes are compare-and-set:
// the bool result is false when the row was not in the expected state.
type SessionStore interface {
	CreateActive(ctx context.Context, s *model.ExamSession) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	LockByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetActiveByStudent(ctx context.Context, studentID uuid.UUID) (*model.ExamSession, error)
	MarkSubmitted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ExpireStartedBefore(ctx context.Context, cutoff time.Time) ([]model.ExamSession, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.ExamSession, error)
}

// ResponseStore persists student responses.
type ResponseStore interface {
	Upsert(ctx context.Context, r *model.Response) error
	ChosenFor(ctx context.Context, sessionID uuid.UUID, questionIDs []int64) (map[int64]*int, error)
	CountAnswered(ctx context.Context, sessionID uuid.UUID) (int, error)
	ListScoredItems(ctx context.Context, sessionID uuid.UUID) ([]model.ScoredItem, error)
}

// Transactor runs fn atomically; stores called with the ctx passed to fn join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher broadcasts committed lifecycle changes. Publishing is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, evt model.SessionEvent)
}

// Stores bundles the persistence collaborators shared by the services.
type Stores struct {
	Tx        Transactor
	Catalog   Catalog
	Students  StudentDirectory
	Sessions  SessionStore
	Responses ResponseStore
	Events    EventPublisher
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.SessionEvent) {}

func (st Stores) events() EventPublisher {
	if st.Events == nil {
		return nopPublisher{}
	}
	return st.Events
}
