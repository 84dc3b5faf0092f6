package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusStarted   SessionStatus = "STARTED"
	SessionStatusSubmitted SessionStatus = "SUBMITTED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusExpired   SessionStatus = "EXPIRED"
)

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
// STARTED -> SUBMITTED | EXPIRED, SUBMITTED -> COMPLETED; EXPIRED and COMPLETED are terminal.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	switch s {
	case SessionStatusStarted:
		return next == SessionStatusSubmitted || next == SessionStatusExpired
	case SessionStatusSubmitted:
		return next == SessionStatusCompleted
	default:
		return false
	}
}

// ExamSession represents one student's single attempt at one exam.
type ExamSession struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      int64         `json:"exam_id"`
	StudentID   uuid.UUID     `json:"student_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// SessionHandle is returned when a session is started (or resumed).
type SessionHandle struct {
	SessionID       uuid.UUID `json:"session_id"`
	ExamID          int64     `json:"exam_id"`
	DurationSeconds int       `json:"duration_seconds"`
	StartTime       time.Time `json:"start_time"`
}

// StartSessionRequest is the payload for starting an exam session.
type StartSessionRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	ExamID    int64  `json:"exam_id" binding:"required,min=1"`
}

// SubmissionSummary is returned by a successful submit.
type SubmissionSummary struct {
	AnsweredCount   int `json:"answered_count"`
	TotalCount      int `json:"total_count"`
	UnansweredCount int `json:"unanswered_count"`
}

// FinishResult carries the locator the report renderer resolves.
type FinishResult struct {
	ReportURL string `json:"report_url"`
}

// HistoryEntry is one row of a student's exam history.
type HistoryEntry struct {
	SessionID      uuid.UUID     `json:"session_id"`
	ExamID         int64         `json:"exam_id"`
	ExamTitle      string        `json:"exam_title"`
	Status         SessionStatus `json:"status"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Score          *int          `json:"score,omitempty"`
	TotalQuestions *int          `json:"total_questions,omitempty"`
	ReportURL      string        `json:"report_url,omitempty"`
}
