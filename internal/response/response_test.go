package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"hello": "world"}) })
	r.GET("/conflict", func(c *gin.Context) {
		FailWithMessage(c, http.StatusConflict, ErrSessionStateConflict, "session is SUBMITTED")
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "req-123", body.Metadata.RequestID)
	require.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	require.Nil(t, body.Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	require.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, ErrSessionStateConflict, body.Error.Code)
	require.Equal(t, "session is SUBMITTED", body.Error.Message)
	require.NotEmpty(t, body.Metadata.RequestID)
}

func TestGetMessageDefaults(t *testing.T) {
	require.Equal(t, "Resource not found.", GetMessage(ErrNotFound))
	require.Equal(t, "An unexpected error occurred.", GetMessage(ErrCode("SOMETHING_ELSE")))
}
