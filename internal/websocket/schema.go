package websocket

import "github.com/stemsi/exstem-assessment/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is every client message. Only autosave reads the answer fields.
type RequestPayload struct {
	Action              Action `json:"action"`
	QuestionID          int64  `json:"question_id,omitempty"`
	SelectedOptionIndex *int   `json:"selected_option_index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event      Event `json:"event"`
	QuestionID int64 `json:"question_id"`
}

type SubmittedResponse struct {
	Event   Event                    `json:"event"`
	Summary *model.SubmissionSummary `json:"summary"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
