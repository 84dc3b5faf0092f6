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

// SessionService handles exam session lifecycle entry points: starting, lookup and history.
type SessionService struct {
	stores  Stores
	scoring *ScoringService
	log     zerolog.Logger
	now     func() time.Time
}

// NewSessionService creates a new SessionService.
func NewSessionService(stores Stores, scoring *ScoringService, log zerolog.Logger) *SessionService {
	return &SessionService{
		stores:  stores,
		scoring: scoring,
		log:     log.With().Str("component", "session_service").Logger(),
		now:     time.Now,
	}
}

// StartSession begins an attempt, or returns the student's existing STARTED session.
// The existing session is returned even when it belongs to another exam: a student
// works on at most one exam at a time.
func (s *SessionService) StartSession(ctx context.Context, studentID uuid.UUID, examID int64) (*model.SessionHandle, error) {
	exam, err := s.stores.Catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, wrapLookup(err, "exam %d", examID)
	}
	if _, err := s.stores.Students.GetStudent(ctx, studentID); err != nil {
		return nil, wrapLookup(err, "student %s", studentID)
	}

	var (
		session *model.ExamSession
		created bool
	)
	err = s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		active, err := s.stores.Sessions.GetActiveByStudent(ctx, studentID)
		if err == nil {
			session = active
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("check active session: %w", err)
		}

		candidate := &model.ExamSession{
			ID:        uuid.New(),
			ExamID:    examID,
			StudentID: studentID,
			Status:    model.SessionStatusStarted,
			StartedAt: s.now().UTC().Truncate(time.Microsecond),
		}
		ok, err := s.stores.Sessions.CreateActive(ctx, candidate)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		if !ok {
			// Concurrent start won; hand back the winner.
			winner, err := s.stores.Sessions.GetActiveByStudent(ctx, studentID)
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: concurrent start for student %s", ErrConflict, studentID)
			}
			if err != nil {
				return fmt.Errorf("concurrent start detected, but fetch failed: %w", err)
			}
			session = winner
			return nil
		}
		session, created = candidate, true
		return nil
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: concurrent start for student %s", ErrConflict, studentID)
		}
		return nil, err
	}

	if session.ExamID != exam.ID {
		if exam, err = s.stores.Catalog.GetExam(ctx, session.ExamID); err != nil {
			return nil, wrapLookup(err, "exam %d", session.ExamID)
		}
	}

	if created {
		metrics.SessionsStarted().WithLabelValues("created").Inc()
		s.stores.events().Publish(ctx, model.NewSessionEvent(model.EventSessionStarted, session, session.StartedAt))
		s.log.Info().
			Str("session_id", session.ID.String()).
			Str("student_id", studentID.String()).
			Int64("exam_id", session.ExamID).
			Msg("Exam session started")
	} else {
		metrics.SessionsStarted().WithLabelValues("resumed").Inc()
		s.stores.events().Publish(ctx, model.NewSessionEvent(model.EventSessionResumed, session, s.now().UTC()))
	}

	return &model.SessionHandle{
		SessionID:       session.ID,
		ExamID:          session.ExamID,
		DurationSeconds: exam.TimeLimitSeconds,
		StartTime:       session.StartedAt,
	}, nil
}

// GetSession returns a session by ID.
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, wrapLookup(err, "session %s", sessionID)
	}
	return session, nil
}

// ListExams returns the summaries of every exam in the catalog.
func (s *SessionService) ListExams(ctx context.Context) ([]model.ExamSummary, error) {
	exams, err := s.stores.Catalog.ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	summaries := make([]model.ExamSummary, 0, len(exams))
	for i := range exams {
		summaries = append(summaries, exams[i].Summary())
	}
	return summaries, nil
}

// History lists a student's sessions, newest first. Completed sessions carry
// their score and report locator.
func (s *SessionService) History(ctx context.Context, studentID uuid.UUID) ([]model.HistoryEntry, error) {
	if _, err := s.stores.Students.GetStudent(ctx, studentID); err != nil {
		return nil, wrapLookup(err, "student %s", studentID)
	}

	sessions, err := s.stores.Sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	titles := make(map[int64]string)
	entries := make([]model.HistoryEntry, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		entry := model.HistoryEntry{
			SessionID:   sess.ID,
			ExamID:      sess.ExamID,
			Status:      sess.Status,
			StartedAt:   sess.StartedAt,
			CompletedAt: sess.CompletedAt,
		}

		title, ok := titles[sess.ExamID]
		if !ok {
			exam, err := s.stores.Catalog.GetExam(ctx, sess.ExamID)
			switch {
			case err == nil:
				title = exam.Title
			case !errors.Is(err, repository.ErrNotFound):
				return nil, fmt.Errorf("get exam %d: %w", sess.ExamID, err)
			}
			titles[sess.ExamID] = title
		}
		entry.ExamTitle = title

		if sess.Status == model.SessionStatusCompleted {
			result, err := s.scoring.CalculateResult(ctx, sess.ID)
			if err != nil {
				return nil, err
			}
			entry.Score = &result.TotalCorrect
			entry.TotalQuestions = &result.TotalQuestions
			entry.ReportURL = s.scoring.ReportURL(sess.ID)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
