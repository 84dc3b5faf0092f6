package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestLifecycleCounters(t *testing.T) {
	before := testutil.ToFloat64(SessionTransitions().WithLabelValues("SUBMITTED"))
	SessionTransitions().WithLabelValues("SUBMITTED").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(SessionTransitions().WithLabelValues("SUBMITTED")))

	sweepBefore := testutil.ToFloat64(SweepExpired())
	SweepExpired().Add(4)
	require.Equal(t, sweepBefore+4, testutil.ToFloat64(SweepExpired()))
}

func TestHTTPMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(HTTP())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping/:id", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping/7", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/ping/:id", "418")))
}
