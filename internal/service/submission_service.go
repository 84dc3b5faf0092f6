package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// SubmissionService closes the answering phase of a session.
type SubmissionService struct {
	stores Stores
	log    zerolog.Logger
	now    func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(stores Stores, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		stores: stores,
		log:    log.With().Str("component", "submission_service").Logger(),
		now:    time.Now,
	}
}

// Submit moves a STARTED session to SUBMITTED and summarises how much was answered.
// A second submit, or a submit on an expired session, is a conflict.
func (s *SubmissionService) Submit(ctx context.Context, sessionID uuid.UUID) (*model.SubmissionSummary, error) {
	var (
		session *model.ExamSession
		summary model.SubmissionSummary
	)
	now := s.now().UTC().Truncate(time.Microsecond)

	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.stores.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return wrapLookup(err, "session %s", sessionID)
		}
		if !session.Status.CanTransitionTo(model.SessionStatusSubmitted) {
			return stateConflict(session.ID, session.Status, model.SessionStatusStarted)
		}

		ok, err := s.stores.Sessions.MarkSubmitted(ctx, sessionID, now)
		if err != nil {
			return fmt.Errorf("mark submitted: %w", err)
		}
		if !ok {
			return stateConflict(session.ID, session.Status, model.SessionStatusStarted)
		}
		session.Status = model.SessionStatusSubmitted
		session.SubmittedAt = &now

		total, err := s.stores.Catalog.CountQuestions(ctx, session.ExamID)
		if err != nil {
			return fmt.Errorf("count questions: %w", err)
		}
		answered, err := s.stores.Responses.CountAnswered(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("count answered: %w", err)
		}
		summary = model.SubmissionSummary{
			AnsweredCount:   answered,
			TotalCount:      total,
			UnansweredCount: max(total-answered, 0),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SessionTransitions().WithLabelValues(string(model.SessionStatusSubmitted)).Inc()
	s.stores.events().Publish(ctx, model.NewSessionEvent(model.EventSessionSubmitted, session, now))
	s.log.Info().
		Str("session_id", sessionID.String()).
		Int("answered", summary.AnsweredCount).
		Int("total", summary.TotalCount).
		Msg("Exam session submitted")

	return &summary, nil
}
