package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
)

// SessionHandler handles the exam-taking endpoints of a session.
type SessionHandler struct {
	sessionService    *service.SessionService
	answerService     *service.AnswerService
	submissionService *service.SubmissionService
	scoringService    *service.ScoringService
	log               zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	sessionService *service.SessionService,
	answerService *service.AnswerService,
	submissionService *service.SubmissionService,
	scoringService *service.ScoringService,
	log zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionService:    sessionService,
		answerService:     answerService,
		submissionService: submissionService,
		scoringService:    scoringService,
		log:               log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/sessions
// Starts an exam attempt, or returns the student's active one (idempotent).
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	handle, err := h.sessionService.StartSession(c.Request.Context(), studentID, req.ExamID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, handle)
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// GetQuestions godoc
// GET /api/v1/sessions/:session_id/questions?page=0&size=5
// Returns one zero-based page of questions with the student's current selections.
func (h *SessionHandler) GetQuestions(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	var q model.QuestionPageQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	page, err := h.answerService.GetQuestionsPage(c.Request.Context(), sessionID, q.Page, q.Size)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, page, &response.Pagination{
		Page:       page.CurrentPage,
		PerPage:    page.PageSize,
		TotalItems: page.TotalQuestions,
		TotalPages: page.TotalPages,
	})
}

// SaveAnswers godoc
// PUT /api/v1/sessions/:session_id/answers
// Upserts a batch of answers atomically. Responds 204 on success.
func (h *SessionHandler) SaveAnswers(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	var req model.SaveAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.answerService.SaveAnswers(c.Request.Context(), sessionID, req.Answers); err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Submit godoc
// POST /api/v1/sessions/:session_id/submit
func (h *SessionHandler) Submit(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	summary, err := h.submissionService.Submit(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, summary)
}

// Finish godoc
// POST /api/v1/sessions/:session_id/finish
// Completes a submitted session and returns the report locator.
func (h *SessionHandler) Finish(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	result, err := h.scoringService.Finish(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetResult godoc
// GET /api/v1/sessions/:session_id/result
// Scores the session from its current responses; valid in any status.
func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	result, err := h.scoringService.CalculateResult(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
