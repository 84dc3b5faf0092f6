package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, "debug", "json"), "expiry_worker")
	log.Info().Int("count", 3).Msg("expired")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "exstem-assessment", line["service"])
	require.Equal(t, "expiry_worker", line["component"])
	require.Equal(t, float64(3), line["count"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	_ = New(&buf, "chatty", "json")
	require.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
