package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// classifyError maps a service error onto an HTTP status and API error code.
func classifyError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, response.ErrSessionStateConflict
	case errors.Is(err, service.ErrInvalidPage):
		return http.StatusBadRequest, response.ErrValidation
	case errors.Is(err, service.ErrBadRequest):
		return http.StatusBadRequest, response.ErrInvalidAnswer
	default:
		return http.StatusInternalServerError, response.ErrInternal
	}
}

// failFromError maps service sentinel errors onto the API envelope.
// Unclassified errors are logged and reported as 500.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classifyError(err)
	switch code {
	case response.ErrNotFound:
		response.Fail(c, status, code)
	case response.ErrValidation:
		response.FailWithFields(c, status, code, map[string]string{"page": err.Error()})
	case response.ErrInternal:
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, status, code)
	default:
		response.FailWithMessage(c, status, code, err.Error())
	}
}

// uuidParam parses a UUID path parameter, writing INVALID_ID on failure.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
