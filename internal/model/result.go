package model

import (
	"time"

	"github.com/google/uuid"
)

// SubjectScore is the tally for a single subject.
type SubjectScore struct {
	Subject    Subject `json:"subject"`
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// ExamResult is derived on every request from responses and the catalog. It is never stored.
type ExamResult struct {
	SessionID         uuid.UUID      `json:"session_id"`
	Subjects          []SubjectScore `json:"subjects"`
	MathCorrect       int            `json:"math_correct"`
	MathTotal         int            `json:"math_total"`
	MathPercentage    float64        `json:"math_percentage"`
	EnglishCorrect    int            `json:"english_correct"`
	EnglishTotal      int            `json:"english_total"`
	EnglishPercentage float64        `json:"english_percentage"`
	TotalCorrect      int            `json:"total_correct"`
	TotalQuestions    int            `json:"total_questions"`
	TotalPercentage   float64        `json:"total_percentage"`
	ComputedAt        time.Time      `json:"completed_at"`
}

// Percentage returns 100*correct/total, or 0 when total is 0.
func Percentage(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Report is what the report renderer consumes for a completed session.
type Report struct {
	SessionID   uuid.UUID   `json:"session_id"`
	StudentName string      `json:"student_name"`
	ExamTitle   string      `json:"exam_title"`
	Result      *ExamResult `json:"result"`
}
