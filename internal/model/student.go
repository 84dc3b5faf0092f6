package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Student is the identity record consumed from the identity provider.
type Student struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName is the name printed on reports.
func (s *Student) DisplayName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}
