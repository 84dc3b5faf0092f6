package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// AnswerService pages questions to a student and records their answers.
type AnswerService struct {
	stores      Stores
	defaultSize int
	maxSize     int
	log         zerolog.Logger
	now         func() time.Time
}

// NewAnswerService creates a new AnswerService. Page sizes <= 0 fall back to 5 and 20.
func NewAnswerService(stores Stores, defaultSize, maxSize int, log zerolog.Logger) *AnswerService {
	if defaultSize <= 0 {
		defaultSize = 5
	}
	if maxSize <= 0 {
		maxSize = 20
	}
	if defaultSize > maxSize {
		defaultSize = maxSize
	}
	return &AnswerService{
		stores:      stores,
		defaultSize: defaultSize,
		maxSize:     maxSize,
		log:         log.With().Str("component", "answer_service").Logger(),
		now:         time.Now,
	}
}

// GetQuestionsPage returns page (zero-based) of the session's exam questions, each
// annotated with the option the student currently has selected.
func (s *AnswerService) GetQuestionsPage(ctx context.Context, sessionID uuid.UUID, page, size int) (*model.QuestionPage, error) {
	if page < 0 {
		return nil, ErrInvalidPage
	}
	if size <= 0 {
		size = s.defaultSize
	}
	if size > s.maxSize {
		size = s.maxSize
	}

	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, wrapLookup(err, "session %s", sessionID)
	}
	if session.Status != model.SessionStatusStarted {
		return nil, stateConflict(session.ID, session.Status, model.SessionStatusStarted)
	}

	total, err := s.stores.Catalog.CountQuestions(ctx, session.ExamID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	totalPages := (total + size - 1) / size
	result := &model.QuestionPage{
		Questions:      []model.QuestionView{},
		TotalPages:     totalPages,
		CurrentPage:    page,
		PageSize:       size,
		IsLastPage:     page >= totalPages-1,
		TotalQuestions: total,
	}
	// Past the end: nothing to fetch, and page*size could overflow.
	if page >= totalPages {
		return result, nil
	}

	questions, err := s.stores.Catalog.ListQuestionsPage(ctx, session.ExamID, size, page*size)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	ids := make([]int64, 0, len(questions))
	for i := range questions {
		ids = append(ids, questions[i].ID)
	}
	chosen, err := s.stores.Responses.ChosenFor(ctx, session.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("load chosen options: %w", err)
	}

	views := make([]model.QuestionView, 0, len(questions))
	for i := range questions {
		views = append(views, questions[i].View(chosen[questions[i].ID]))
	}
	result.Questions = views
	return result, nil
}

// SaveAnswers upserts every answer in one transaction; either all are recorded or none.
// A nil SelectedOptionIndex clears the answer.
func (s *AnswerService) SaveAnswers(ctx context.Context, sessionID uuid.UUID, answers []model.AnswerInput) error {
	if len(answers) == 0 {
		return fmt.Errorf("%w: no answers given", ErrBadRequest)
	}

	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// Share lock: a concurrent submit waits until these answers are committed.
		session, err := s.stores.Sessions.LockByID(ctx, sessionID)
		if err != nil {
			return wrapLookup(err, "session %s", sessionID)
		}
		if session.Status != model.SessionStatusStarted {
			return stateConflict(session.ID, session.Status, model.SessionStatusStarted)
		}

		now := s.now().UTC()
		for _, a := range answers {
			q, err := s.stores.Catalog.GetQuestion(ctx, a.QuestionID)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: unknown question %d", ErrBadRequest, a.QuestionID)
			}
			if err != nil {
				return fmt.Errorf("get question %d: %w", a.QuestionID, err)
			}
			if q.ExamID != session.ExamID {
				return fmt.Errorf("%w: question %d does not belong to exam %d", ErrBadRequest, q.ID, session.ExamID)
			}

			var chosen *int
			if a.SelectedOptionIndex != nil {
				idx := *a.SelectedOptionIndex
				if !q.ValidOption(idx) {
					return fmt.Errorf("%w: option %d out of range for question %d (%d options)",
						ErrBadRequest, idx, q.ID, len(q.Options))
				}
				chosen = &idx
			}

			resp := &model.Response{
				SessionID:   session.ID,
				QuestionID:  q.ID,
				ChosenIndex: chosen,
				IsCorrect:   q.IsCorrect(chosen),
				UpdatedAt:   now,
			}
			if err := s.stores.Responses.Upsert(ctx, resp); err != nil {
				if repository.IsUniqueViolation(err) {
					return fmt.Errorf("%w: concurrent answer for question %d", ErrConflict, q.ID)
				}
				return fmt.Errorf("upsert answer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	metrics.AnswersSaved().Add(float64(len(answers)))
	s.log.Debug().
		Str("session_id", sessionID.String()).
		Int("count", len(answers)).
		Msg("Answers saved")
	return nil
}
