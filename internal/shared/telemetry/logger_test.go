package telemetry

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info("analysis.completed", map[string]any{"request_id": "r-1", "score": 72})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "analysis.completed", entry["message"])
	assert.Equal(t, "r-1", entry["request_id"])
	assert.EqualValues(t, 72, entry["score"])
	assert.NotEmpty(t, entry["time"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info("dropped", nil)
	Debug("dropped", nil)
	assert.Zero(t, buf.Len())

	Warn("kept", nil)
	assert.Contains(t, buf.String(), `"message":"kept"`)
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "chatty", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Debug("dropped", nil)
	Info("kept", nil)
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "kept")
}
