package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a lifecycle change broadcast to exam monitors.
type SessionEventType string

const (
	EventSessionStarted   SessionEventType = "session_started"
	EventSessionResumed   SessionEventType = "session_resumed"
	EventSessionSubmitted SessionEventType = "session_submitted"
	EventSessionCompleted SessionEventType = "session_completed"
	EventSessionExpired   SessionEventType = "session_expired"
)

// SessionEvent is published after a session change is committed.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID uuid.UUID        `json:"session_id"`
	ExamID    int64            `json:"exam_id"`
	StudentID uuid.UUID        `json:"student_id"`
	Status    SessionStatus    `json:"status"`
	At        time.Time        `json:"at"`
}

// NewSessionEvent builds an event describing s.
func NewSessionEvent(t SessionEventType, s *ExamSession, at time.Time) SessionEvent {
	return SessionEvent{
		Type:      t,
		SessionID: s.ID,
		ExamID:    s.ExamID,
		StudentID: s.StudentID,
		Status:    s.Status,
		At:        at,
	}
}
