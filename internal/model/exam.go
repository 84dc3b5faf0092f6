package model

import "time"

// Exam is a titled, time-limited collection of ordered questions.
// Exams are read-only here; authoring happens elsewhere.
type Exam struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExamSummary is the student-facing exam listing entry.
type ExamSummary struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Summary projects the exam for the student exam picker.
func (e *Exam) Summary() ExamSummary {
	return ExamSummary{ID: e.ID, Title: e.Title, DurationSeconds: e.TimeLimitSeconds}
}
