package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextHandlerAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ContextHandler{Handler: slog.NewJSONHandler(&buf, nil)}).With("component", "test")

	logger.InfoContext(WithTraceID(context.Background(), "req-123"), "hello", "story_id", "abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-123", rec["trace_id"])
	assert.Equal(t, "test", rec["component"])
	assert.Equal(t, "abc", rec["story_id"])

	buf.Reset()
	logger.Info("no trace")
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	_, ok := rec["trace_id"]
	assert.False(t, ok)
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return assert.AnError }

func TestMultiHandlerKeepsWritingAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	good := slog.NewJSONHandler(&buf, nil)
	multi := NewMultiHandler(failingHandler{good}, good)

	err := slog.New(multi).Handler().Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelError, "boom", 0))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, buf.String(), `"msg":"boom"`)
}
