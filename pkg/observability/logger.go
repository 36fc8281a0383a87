package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownLevel is returned by ParseLevel.
var ErrUnknownLevel = errors.New("unknown log level")

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(text string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrUnknownLevel, text)
	}
}

type datasetKey struct{}

// WithDataset tags ctx with the dataset being processed. Records logged with
// the returned context carry it as dataset.name.
func WithDataset(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, datasetKey{}, name)
}

// DatasetFrom returns the dataset tag of ctx, if any.
func DatasetFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(datasetKey{}).(string)

	return name, ok && name != ""
}

// RunHandler is the slog.Handler of every typedna logger. It binds the run
// identity (service, environment, run_id) once and adds, per record, the
// active span and the dataset tag found in the context.
type RunHandler struct {
	inner slog.Handler
}

// NewRunHandler wraps inner. Run attributes are bound before any group so
// they stay at the top level.
func NewRunHandler(inner slog.Handler, cfg Config) *RunHandler {
	attrs := []slog.Attr{slog.String("service", cfg.ServiceName)}

	if cfg.Environment != "" {
		attrs = append(attrs, slog.String("env", cfg.Environment))
	}

	if cfg.RunID != "" {
		attrs = append(attrs, slog.String("run_id", cfg.RunID))
	}

	return &RunHandler{inner: inner.WithAttrs(attrs)}
}

func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RunHandler) Handle(ctx context.Context, record slog.Record) error {
	if name, ok := DatasetFrom(ctx); ok {
		record.AddAttrs(slog.String("dataset.name", name))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("run handler: %w", err)
	}

	return nil
}

func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RunHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *RunHandler) WithGroup(name string) slog.Handler {
	return &RunHandler{inner: h.inner.WithGroup(name)}
}
