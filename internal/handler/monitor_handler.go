package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/monitor"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

const keepAliveInterval = 30 * time.Second

// MonitorHandler streams exam session lifecycle events to proctors over SSE.
type MonitorHandler struct {
	catalog   service.Catalog
	publisher *monitor.Publisher
	keepAlive time.Duration
	log       zerolog.Logger
}

func NewMonitorHandler(catalog service.Catalog, publisher *monitor.Publisher, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		catalog:   catalog,
		publisher: publisher,
		keepAlive: keepAliveInterval,
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// StreamExamEvents godoc
// GET /api/v1/monitor/exams/:exam_id/events
// Sends a snapshot event, then forwards every session event published for the exam.
func (h *MonitorHandler) StreamExamEvents(c *gin.Context) {
	examID, err := strconv.ParseInt(c.Param("exam_id"), 10, 64)
	if err != nil || examID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	reqCtx := c.Request.Context()
	exam, err := h.catalog.GetExam(reqCtx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		failFromError(c, h.log, err)
		return
	}
	total, err := h.catalog.CountQuestions(reqCtx, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	pubsub := h.publisher.Subscribe(reqCtx, examID)
	defer pubsub.Close()
	if _, err := pubsub.Receive(reqCtx); err != nil {
		failFromError(c, h.log, err)
		return
	}
	ch := pubsub.Channel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"data": gin.H{
			"exam_id":          exam.ID,
			"title":            exam.Title,
			"duration_seconds": exam.TimeLimitSeconds,
			"total_questions":  total,
		},
	})
	c.Writer.Flush()

	keepAliveTicker := time.NewTicker(h.keepAlive)
	defer keepAliveTicker.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Int64("exam_id", examID).Msg("Monitor attached to exam event stream")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int64("exam_id", examID).Msg("Monitor detached from exam event stream")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already JSON; forward as-is.
			writeSSEData(c, []byte(msg.Payload))

		case <-keepAliveTicker.C:
			writeSSEData(c, pingPayload)
		}
	}
}

func writeSSEData(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
