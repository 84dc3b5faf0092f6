package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ScoringService derives results from stored responses and finalises sessions.
// Results are never persisted; every call recomputes them from the catalog.
type ScoringService struct {
	stores     Stores
	reportBase string
	log        zerolog.Logger
	now        func() time.Time
}

// NewScoringService creates a new ScoringService. reportBase prefixes report locators.
func NewScoringService(stores Stores, reportBase string, log zerolog.Logger) *ScoringService {
	return &ScoringService{
		stores:     stores,
		reportBase: strings.TrimRight(reportBase, "/"),
		log:        log.With().Str("component", "scoring_service").Logger(),
		now:        time.Now,
	}
}

// ReportURL returns the locator the report renderer resolves for a session.
func (s *ScoringService) ReportURL(sessionID uuid.UUID) string {
	return s.reportBase + "/" + sessionID.String()
}

// CalculateResult scores a session in any status. Every stored response counts
// toward its subject total, including cleared ones; questions never answered do not.
func (s *ScoringService) CalculateResult(ctx context.Context, sessionID uuid.UUID) (*model.ExamResult, error) {
	if _, err := s.stores.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, wrapLookup(err, "session %s", sessionID)
	}
	items, err := s.stores.Responses.ListScoredItems(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list scored items: %w", err)
	}
	return Score(sessionID, items, s.now().UTC()), nil
}

// Score tallies items per subject. Correctness is chosen == correct; a nil choice is wrong.
func Score(sessionID uuid.UUID, items []model.ScoredItem, at time.Time) *model.ExamResult {
	tallies := make(map[model.Subject]*model.SubjectScore, len(model.Subjects))
	for _, subj := range model.Subjects {
		tallies[subj] = &model.SubjectScore{Subject: subj}
	}
	for _, it := range items {
		t, ok := tallies[it.Subject]
		if !ok {
			continue
		}
		t.Total++
		if it.ChosenIndex != nil && *it.ChosenIndex == it.CorrectIndex {
			t.Correct++
		}
	}

	result := &model.ExamResult{
		SessionID:  sessionID,
		Subjects:   make([]model.SubjectScore, 0, len(model.Subjects)),
		ComputedAt: at,
	}
	for _, subj := range model.Subjects {
		t := tallies[subj]
		t.Percentage = model.Percentage(t.Correct, t.Total)
		result.Subjects = append(result.Subjects, *t)
		result.TotalCorrect += t.Correct
		result.TotalQuestions += t.Total

		switch subj {
		case model.SubjectMath:
			result.MathCorrect, result.MathTotal, result.MathPercentage = t.Correct, t.Total, t.Percentage
		case model.SubjectEnglish:
			result.EnglishCorrect, result.EnglishTotal, result.EnglishPercentage = t.Correct, t.Total, t.Percentage
		}
	}
	result.TotalPercentage = model.Percentage(result.TotalCorrect, result.TotalQuestions)
	return result
}

// Finish moves a SUBMITTED session to COMPLETED and returns its report locator.
// Finishing an already COMPLETED session returns the same locator.
func (s *ScoringService) Finish(ctx context.Context, sessionID uuid.UUID) (*model.FinishResult, error) {
	var (
		session     *model.ExamSession
		transitions bool
	)
	now := s.now().UTC().Truncate(time.Microsecond)

	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.stores.Sessions.MarkCompleted(ctx, sessionID, now)
		if err != nil {
			return fmt.Errorf("mark completed: %w", err)
		}

		session, err = s.stores.Sessions.GetByID(ctx, sessionID)
		if err != nil {
			return wrapLookup(err, "session %s", sessionID)
		}
		if ok {
			transitions = true
			return nil
		}
		// A lost CAS is either a retry on a COMPLETED session or an illegal move.
		if session.Status != model.SessionStatusCompleted {
			return stateConflict(session.ID, session.Status, model.SessionStatusSubmitted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.CalculateResult(ctx, sessionID); err != nil {
		return nil, err
	}

	if transitions {
		metrics.SessionTransitions().WithLabelValues(string(model.SessionStatusCompleted)).Inc()
		s.stores.events().Publish(ctx, model.NewSessionEvent(model.EventSessionCompleted, session, now))
		s.log.Info().Str("session_id", sessionID.String()).Msg("Exam session completed")
	}

	return &model.FinishResult{ReportURL: s.ReportURL(sessionID)}, nil
}

// Report assembles what the report renderer consumes. Only COMPLETED sessions have one.
func (s *ScoringService) Report(ctx context.Context, sessionID uuid.UUID) (*model.Report, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, wrapLookup(err, "session %s", sessionID)
	}
	if session.Status != model.SessionStatusCompleted {
		return nil, stateConflict(session.ID, session.Status, model.SessionStatusCompleted)
	}

	student, err := s.stores.Students.GetStudent(ctx, session.StudentID)
	if err != nil {
		return nil, wrapLookup(err, "student %s", session.StudentID)
	}
	exam, err := s.stores.Catalog.GetExam(ctx, session.ExamID)
	if err != nil {
		return nil, wrapLookup(err, "exam %d", session.ExamID)
	}
	result, err := s.CalculateResult(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		SessionID:   session.ID,
		StudentName: student.DisplayName(),
		ExamTitle:   exam.Title,
		Result:      result,
	}, nil
}
