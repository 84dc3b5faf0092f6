package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is a student's recorded choice for one question within one session.
// At most one exists per (SessionID, QuestionID).
type Response struct {
	ID          int64     `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	QuestionID  int64     `json:"question_id"`
	ChosenIndex *int      `json:"chosen_index"`
	// IsCorrect is a write-time cache; scoring recomputes it from the catalog.
	IsCorrect bool      `json:"is_correct"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerInput is one answer in a save request. A nil index clears the answer.
type AnswerInput struct {
	QuestionID          int64 `json:"question_id" binding:"required,min=1"`
	SelectedOptionIndex *int  `json:"selected_option_index" binding:"omitempty,min=0"`
}

// SaveAnswersRequest is the payload for saving answers.
type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// QuestionPageQuery is the query string of the questions page endpoint.
type QuestionPageQuery struct {
	Page int `form:"page" binding:"min=0"`
	Size int `form:"size" binding:"min=0"`
}

// QuestionPage is one page of student-facing questions.
type QuestionPage struct {
	Questions      []QuestionView `json:"questions"`
	TotalPages     int            `json:"total_pages"`
	CurrentPage    int            `json:"current_page"`
	PageSize       int            `json:"page_size"`
	IsLastPage     bool           `json:"is_last_page"`
	TotalQuestions int            `json:"total_questions"`
}

// ScoredItem is one exam question paired with the session's choice, the input to scoring.
type ScoredItem struct {
	QuestionID   int64
	Subject      Subject
	CorrectIndex int
	ChosenIndex  *int
}
