package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Exam    *handler.ExamHandler
	Student *handler.StudentHandler
	Report  *handler.ReportHandler
	Monitor *handler.MonitorHandler
	Stream  *handler.StreamHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log and every envelope carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	router.Use(metrics.HTTP())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	// ─── 1. Catalog ────────────────────────────────────────────────────
	api.GET("/exams", middleware.CacheControl(60), handlers.Exam.ListExams)

	// ─── 2. Exam sessions ──────────────────────────────────────────────
	sessions := api.Group("/sessions")
	sessions.Use(middleware.NoStore())
	{
		sessions.POST("", handlers.Session.StartSession)
		sessions.GET("/:session_id", handlers.Session.GetSession)
		sessions.GET("/:session_id/questions", handlers.Session.GetQuestions)
		sessions.PUT("/:session_id/answers", handlers.Session.SaveAnswers)
		sessions.POST("/:session_id/submit", handlers.Session.Submit)
		sessions.POST("/:session_id/finish", handlers.Session.Finish)
		sessions.GET("/:session_id/result", handlers.Session.GetResult)
		if handlers.Stream != nil {
			sessions.GET("/:session_id/stream", handlers.Stream.SessionStream)
		}
	}

	// ─── 3. Reports & history ──────────────────────────────────────────
	api.GET("/reports/:session_id", middleware.NoStore(), handlers.Report.GetReport)
	api.GET("/students/:student_id/history", middleware.NoStore(), handlers.Student.GetHistory)

	// ─── 4. Live monitor (SSE) ─────────────────────────────────────────
	if handlers.Monitor != nil {
		api.GET("/monitor/exams/:exam_id/events", handlers.Monitor.StreamExamEvents)
	}

	return router
}
