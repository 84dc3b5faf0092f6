package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stemsi/exstem-assessment/internal/repository"
)

// Sentinel errors returned (wrapped) by every service. Handlers match them with errors.Is.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("session state conflict")
	ErrBadRequest  = errors.New("bad request")
	ErrInvalidPage = errors.New("page must not be negative")
)

// wrapLookup maps repository.ErrNotFound to ErrNotFound and wraps anything else.
func wrapLookup(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func stateConflict(id uuid.UUID, status, want model.SessionStatus) error {
	return fmt.Errorf("%w: session %s is %s, expected %s", ErrConflict, id, status, want)
}
