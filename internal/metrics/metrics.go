package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce       sync.Once
	sessionsStarted    *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	answersSaved       prometheus.Counter
	sweepExpired       prometheus.Counter
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
)

// Register initialises the Prometheus collectors used by the assessment engine.
func Register() {
	registerOnce.Do(func() {
		sessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_sessions_started_total",
			Help: "Start requests, split by whether a new session was created or an active one resumed.",
		}, []string{"outcome"})

		sessionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "exam_session_transitions_total",
			Help: "Committed session status transitions.",
		}, []string{"to"})

		answersSaved = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_answers_saved_total",
			Help: "Answers upserted across all sessions.",
		})

		sweepExpired = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "exam_sessions_expired_by_sweep_total",
			Help: "Sessions expired by the housekeeping sweep.",
		})

		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution of HTTP requests.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(sessionsStarted, sessionTransitions, answersSaved, sweepExpired, httpRequests, httpLatency)
	})
}

// SessionsStarted exposes the start counter ("created" or "resumed").
func SessionsStarted() *prometheus.CounterVec {
	Register()
	return sessionsStarted
}

// SessionTransitions exposes the transition counter keyed by target status.
func SessionTransitions() *prometheus.CounterVec {
	Register()
	return sessionTransitions
}

// AnswersSaved exposes the upserted answers counter.
func AnswersSaved() prometheus.Counter {
	Register()
	return answersSaved
}

// SweepExpired exposes the sweep counter.
func SweepExpired() prometheus.Counter {
	Register()
	return sweepExpired
}

// HTTP records request count and latency per matched route.
func HTTP() gin.HandlerFunc {
	Register()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
