package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// StudentHandler serves per-student views.
type StudentHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(sessionService *service.SessionService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "student_handler").Logger(),
	}
}

// GetHistory godoc
// GET /api/v1/students/:student_id/history
func (h *StudentHandler) GetHistory(c *gin.Context) {
	studentID, ok := uuidParam(c, "student_id")
	if !ok {
		return
	}

	history, err := h.sessionService.History(c.Request.Context(), studentID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sessions": history})
}
