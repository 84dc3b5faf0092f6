// Package monitor broadcasts exam session lifecycle events over Redis Pub/Sub,
// one channel per exam.
package monitor

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// Publisher publishes session events to the exam's monitor channel.
type Publisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewPublisher creates a new Publisher.
func NewPublisher(rdb *redis.Client, log zerolog.Logger) *Publisher {
	return &Publisher{
		rdb: rdb,
		log: log.With().Str("component", "monitor_publisher").Logger(),
	}
}

// Publish sends evt. Failures are logged; the committed change they describe stands.
func (p *Publisher) Publish(ctx context.Context, evt model.SessionEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Error().Err(err).Str("session_id", evt.SessionID.String()).Msg("Failed to encode session event")
		return
	}
	channel := config.CacheKey.ExamMonitorChannel(evt.ExamID)
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn().
			Err(err).
			Str("channel", channel).
			Str("type", string(evt.Type)).
			Msg("Failed to publish session event")
	}
}

// Subscribe attaches to an exam's monitor channel. The caller must Close the subscription.
func (p *Publisher) Subscribe(ctx context.Context, examID int64) *redis.PubSub {
	return p.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
}
