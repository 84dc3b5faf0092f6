package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	ws "github.com/stemsi/exstem-assessment/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// StreamHandler serves the student-facing autosave WebSocket of a session.
type StreamHandler struct {
	sessionService    *service.SessionService
	answerService     *service.AnswerService
	submissionService *service.SubmissionService
	log               zerolog.Logger
	upgrader          websocket.Upgrader
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	submissionService *service.SubmissionService,
	log zerolog.Logger,
	allowedOrigins []string,
) *StreamHandler {
	return &StreamHandler{
		sessionService:    sessionService,
		answerService:     answerService,
		submissionService: submissionService,
		log:               log.With().Str("component", "stream_handler").Logger(),
		upgrader:          buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /api/v1/sessions/:session_id/stream
// Upgrades to WebSocket for per-answer autosave and submit.
func (h *StreamHandler) SessionStream(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	if session.Status != model.SessionStatusStarted {
		response.Fail(c, http.StatusConflict, response.ErrSessionStateConflict)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", sessionID.String()).
		Int64("exam_id", session.ExamID).
		Logger()

	wsLog.Info().Msg("Student connected")

	ctx := c.Request.Context()
	for {
		data, err := ws.ReadMessage(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var msg ws.RequestPayload
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.WriteError(conn, string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload))
			continue
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(ctx, conn, wsLog, sessionID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(ctx, conn, wsLog, sessionID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records a single answer through the same path as the batch endpoint.
func (h *StreamHandler) handleAutosave(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, msg *ws.RequestPayload) {
	if msg.QuestionID <= 0 {
		ws.WriteError(conn, string(response.ErrInvalidPayload), "question_id is required")
		return
	}

	answer := model.AnswerInput{QuestionID: msg.QuestionID, SelectedOptionIndex: msg.SelectedOptionIndex}
	if err := h.answerService.SaveAnswers(ctx, sessionID, []model.AnswerInput{answer}); err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

func (h *StreamHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) {
	summary, err := h.submissionService.Submit(ctx, sessionID)
	if err != nil {
		h.writeServiceError(conn, wsLog, err)
		return
	}
	ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventSubmitted, Summary: summary})
}

func (h *StreamHandler) writeServiceError(conn *websocket.Conn, wsLog zerolog.Logger, err error) {
	_, code := classifyError(err)
	if code == response.ErrInternal {
		wsLog.Error().Err(err).Msg("Stream action failed")
		ws.WriteError(conn, string(code), response.GetMessage(code))
		return
	}
	ws.WriteError(conn, string(code), err.Error())
}
