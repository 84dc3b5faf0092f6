package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// ReportHandler resolves report locators handed out by Finish.
type ReportHandler struct {
	scoringService *service.ScoringService
	log            zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(scoringService *service.ScoringService, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		scoringService: scoringService,
		log:            log.With().Str("component", "report_handler").Logger(),
	}
}

// GetReport godoc
// GET /api/v1/reports/:session_id
func (h *ReportHandler) GetReport(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	report, err := h.scoringService.Report(c.Request.Context(), sessionID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, report)
}
