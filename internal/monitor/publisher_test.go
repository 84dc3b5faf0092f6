package monitor

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/model"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToExamChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	p := NewPublisher(rdb, zerolog.New(io.Discard))

	sub := p.Subscribe(ctx, 7)
	defer sub.Close()
	_, err := sub.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	evt := model.SessionEvent{
		Type:      model.EventSessionSubmitted,
		SessionID: uuid.New(),
		ExamID:    7,
		StudentID: uuid.New(),
		Status:    model.SessionStatusSubmitted,
		At:        time.Now().UTC().Truncate(time.Second),
	}
	p.Publish(ctx, evt)

	select {
	case msg := <-sub.Channel():
		var got model.SessionEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		require.Equal(t, evt.SessionID, got.SessionID)
		require.Equal(t, model.EventSessionSubmitted, got.Type)
		require.Equal(t, "exam:7:monitor", msg.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishSwallowsRedisErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	p := NewPublisher(rdb, zerolog.New(io.Discard))
	require.NotPanics(t, func() {
		p.Publish(context.Background(), model.SessionEvent{Type: model.EventSessionStarted, ExamID: 1})
	})
}
