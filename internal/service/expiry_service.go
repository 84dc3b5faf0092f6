package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ExpiryService expires sessions abandoned in STARTED.
type ExpiryService struct {
	stores Stores
	log    zerolog.Logger
}

// NewExpiryService creates a new ExpiryService.
func NewExpiryService(stores Stores, log zerolog.Logger) *ExpiryService {
	return &ExpiryService{
		stores: stores,
		log:    log.With().Str("component", "expiry_service").Logger(),
	}
}

// Sweep marks every STARTED session that began strictly before cutoff as EXPIRED
// and returns how many were affected. Responses are left untouched.
func (s *ExpiryService) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	var expired []model.ExamSession
	err := s.stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		expired, err = s.stores.Sessions.ExpireStartedBefore(ctx, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	metrics.SweepExpired().Add(float64(len(expired)))
	metrics.SessionTransitions().WithLabelValues(string(model.SessionStatusExpired)).Add(float64(len(expired)))
	now := time.Now().UTC()
	for i := range expired {
		s.stores.events().Publish(ctx, model.NewSessionEvent(model.EventSessionExpired, &expired[i], now))
	}

	s.log.Info().
		Int("count", len(expired)).
		Time("cutoff", cutoff).
		Msg("Expired abandoned exam sessions")
	return len(expired), nil
}
