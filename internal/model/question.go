package model

import "fmt"

const (
	MinOptions = 2
	MaxOptions = 6
)

// Question is a single-select multiple-choice item belonging to one exam.
type Question struct {
	ID           int64    `json:"id"`
	ExamID       int64    `json:"exam_id"`
	Position     int      `json:"position"`
	Subject      Subject  `json:"subject"`
	Content      string   `json:"content"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"-"`
}

// Validate checks the option count and that the correct index addresses an option.
func (q *Question) Validate() error {
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return fmt.Errorf("question needs %d to %d options, has %d", MinOptions, MaxOptions, n)
	}
	if !q.ValidOption(q.CorrectIndex) {
		return fmt.Errorf("correct index %d out of range for %d options", q.CorrectIndex, len(q.Options))
	}
	return nil
}

// ValidOption reports whether idx addresses one of the question's options.
func (q *Question) ValidOption(idx int) bool {
	return idx >= 0 && idx < len(q.Options)
}

// IsCorrect reports whether chosen matches the correct option. A nil choice is never correct.
func (q *Question) IsCorrect(chosen *int) bool {
	return chosen != nil && *chosen == q.CorrectIndex
}

// QuestionView is a question as shown to a student: no correct index, plus the
// option the student currently has selected in this session (nil when unanswered).
type QuestionView struct {
	ID             int64    `json:"id"`
	Subject        Subject  `json:"subject"`
	Content        string   `json:"content"`
	Options        []string `json:"options"`
	SelectedOption *int     `json:"selected_option"`
}

// View builds the student-facing projection of the question.
func (q *Question) View(selected *int) QuestionView {
	return QuestionView{
		ID:             q.ID,
		Subject:        q.Subject,
		Content:        q.Content,
		Options:        q.Options,
		SelectedOption: selected,
	}
}
