package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/typedna/pkg/observability"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

func runLogger(buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewRunHandler(inner, cfg))
}

func TestRunHandler_InjectsSpanAndRun(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Environment = "ci"
	cfg.RunID = "0f8e"

	logger := runLogger(&buf, cfg)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "view built")

	record := decodeRecord(t, &buf)

	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "typedna", record["service"])
	assert.Equal(t, "ci", record["env"])
	assert.Equal(t, "0f8e", record["run_id"])
}

func TestRunHandler_TagsDataset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := runLogger(&buf, observability.DefaultConfig())

	ctx := observability.WithDataset(context.Background(), "acme")
	logger.DebugContext(ctx, "dataset loaded", "records", 4)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "acme", record["dataset.name"])
	assert.InDelta(t, 4, record["records"], 0)

	name, ok := observability.DatasetFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, "acme", name)

	_, ok = observability.DatasetFrom(observability.WithDataset(context.Background(), ""))
	assert.False(t, ok)
}

func TestRunHandler_NoContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := runLogger(&buf, observability.DefaultConfig())

	logger.WithGroup("view").Info("built", "entities", 3)

	record := decodeRecord(t, &buf)

	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.NotContains(t, record, "run_id")
	assert.NotContains(t, record, "dataset.name")
	assert.Equal(t, "typedna", record["service"])
	assert.Equal(t, map[string]any{"entities": float64(3)}, record["view"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}

	for text, want := range tests {
		got, err := observability.ParseLevel(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}

	_, err := observability.ParseLevel("chatty")
	require.ErrorIs(t, err, observability.ErrUnknownLevel)
}
