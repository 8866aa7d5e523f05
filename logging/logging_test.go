package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrDefault(t *testing.T) {
	assert.IsType(t, NoOpLogger{}, OrDefault(nil))

	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrDefault(l))
}

func TestZerologAdapter_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf))

	l.Info("workflow.run_started", "run", "r1", "agents", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "workflow.run_started", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "r1", entry["run"])
	assert.Equal(t, float64(3), entry["agents"])
}

func TestZerologAdapter_DanglingKey(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf))

	l.Warn("server.ws_broadcast_dropped", "orphan")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "orphan", entry["arg"])
}

func TestNoOpLoggerDiscards(t *testing.T) {
	// Must not panic on any level.
	var l Logger = NoOpLogger{}
	l.Debug("a", "k", "v")
	l.Info("b")
	l.Warn("c", "k")
	l.Error("d", "k", "v")
}
