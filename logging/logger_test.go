package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDocLogger_ContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})
	l.WithComponent("orchestrator").WithRun("ctx-1", "agent-1").WithContext("mode", "parallel").
		Info("hello", "count", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "orchestrator", entry["component"])
	assert.Equal(t, "ctx-1", entry["context_id"])
	assert.Equal(t, "agent-1", entry["agent_id"])
	assert.Equal(t, "parallel", entry["mode"])
	assert.Equal(t, float64(2), entry["count"])
}

func TestDocLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})
	l.Info("dropped")
	l.Debug("dropped")
	assert.Empty(t, buf.String())

	l.LogExecution("a", "p", time.Millisecond, false, "boom")
	assert.Contains(t, buf.String(), "Agent execution failed")
	assert.Contains(t, buf.String(), "error=boom")
}

func TestDocLogger_LogModelCall(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf})
	l.LogModelCall("gpt-4o", 42, time.Millisecond, false, errors.New("rate limited"))
	assert.Contains(t, buf.String(), "Model call failed")
	assert.Contains(t, buf.String(), "token_count=42")
}

func TestOrNoOp(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNoOp(nil))
	l := NewDefaultSlogLogger()
	assert.Same(t, l, OrNoOp(l))
}

func TestLogExecution_Fallback(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	LogExecution(l, "a", "p", time.Millisecond, false, "boom")
	assert.Contains(t, buf.String(), "Agent execution failed")
	assert.Contains(t, buf.String(), "error=boom")

	buf.Reset()
	LogModelCall(l, "gpt-4o", 10, time.Millisecond, true, nil)
	assert.Contains(t, buf.String(), "Model call completed")
}

func TestLogExecution_UsesDocLogger(t *testing.T) {
	var buf bytes.Buffer
	var l Logger = NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "text", Output: &buf}).WithComponent("orchestrator")
	LogExecution(l, "a", "p", time.Millisecond, true, "")
	assert.Contains(t, buf.String(), "component=orchestrator")
}
