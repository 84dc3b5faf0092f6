package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stretchr/testify/require"
)

func TestFailFromError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := zerolog.New(io.Discard)

	tests := []struct {
		name   string
		err    error
		status int
		code   response.ErrCode
		field  string
	}{
		{"not found", fmt.Errorf("%w: session x", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound, ""},
		{"conflict", fmt.Errorf("%w: session x is SUBMITTED", service.ErrConflict), http.StatusConflict, response.ErrSessionStateConflict, ""},
		{"bad answer", fmt.Errorf("%w: unknown question 9", service.ErrBadRequest), http.StatusBadRequest, response.ErrInvalidAnswer, ""},
		{"negative page", service.ErrInvalidPage, http.StatusBadRequest, response.ErrValidation, "page"},
		{"anything else", fmt.Errorf("boom"), http.StatusInternalServerError, response.ErrInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			failFromError(c, log, tt.err)

			require.Equal(t, tt.status, w.Code)
			var body response.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			require.NotNil(t, body.Error)
			require.Equal(t, tt.code, body.Error.Code)
			if tt.field != "" {
				require.Contains(t, body.Error.Fields, tt.field)
			}
		})
	}
}
