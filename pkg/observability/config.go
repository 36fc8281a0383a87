// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for typedna.
package observability

import (
	"io"
	"log/slog"
	"time"
)

const (
	defaultServiceName     = "typedna"
	defaultShutdownTimeout = 5 * time.Second
)

// Config selects what one typedna invocation reports and where.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Environment labels telemetry, e.g. "ci" or "laptop". Empty omits it.
	Environment string
	// RunID identifies one CLI invocation in logs, spans and metrics.
	RunID string

	// OTLPEndpoint is a gRPC collector address; empty keeps traces in-process
	// and metrics in the Prometheus registry only.
	OTLPEndpoint string
	OTLPHeaders  map[string]string
	OTLPInsecure bool
	// SampleRatio is the root trace sampling ratio. Zero samples everything.
	SampleRatio float64

	LogLevel slog.Level
	LogJSON  bool
	// LogWriter receives log output. Nil means standard error.
	LogWriter io.Writer

	// ShutdownTimeout bounds the final flush of spans and metrics.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		LogLevel:        slog.LevelInfo,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
