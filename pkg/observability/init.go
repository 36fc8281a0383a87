package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName names the tracer and the meter.
const instrumentationName = "github.com/Sumatoshi-tech/typedna"

const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// ErrNoRegistry is returned by WriteMetrics on Providers not built by Init.
var ErrNoRegistry = errors.New("observability: no metrics registry")

// Providers is the telemetry of one typedna run.
type Providers struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger
	// Shutdown flushes spans and metrics. Call it once, before exit.
	Shutdown func(ctx context.Context) error

	registry *prometheus.Registry
}

// WriteMetrics dumps every collected metric to path in the Prometheus text
// exposition format, for node_exporter's textfile collector.
func (p Providers) WriteMetrics(path string) error {
	if p.registry == nil {
		return ErrNoRegistry
	}

	err := prometheus.WriteToTextfile(path, p.registry)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	return nil
}

// closers shuts providers down in reverse order of creation.
type closers []func(context.Context) error

func (c closers) close(ctx context.Context) error {
	errs := make([]error, 0, len(c))
	for _, fn := range slices.Backward(c) {
		errs = append(errs, fn(ctx))
	}

	return errors.Join(errs...)
}

// Init sets up tracing, metrics and logging for one run and installs the
// tracer and meter providers globally. Metrics always land in a private
// Prometheus registry; with an OTLP endpoint, spans and metrics are also
// pushed to the collector.
func Init(cfg Config) (Providers, error) {
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return Providers{}, fmt.Errorf("build otel resource: %w", err)
	}

	var stack closers

	tp, err := newTracerProvider(ctx, cfg, res, &stack)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("tracer provider: %w", err), stack.close(ctx))
	}

	registry := prometheus.NewRegistry()

	mp, err := newMeterProvider(ctx, cfg, res, registry, &stack)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("meter provider: %w", err), stack.close(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return Providers{
		Tracer: tp.Tracer(instrumentationName),
		Meter:  mp.Meter(instrumentationName),
		Logger: newLogger(cfg),
		Shutdown: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return stack.close(ctx)
		},
		registry: registry,
	}, nil
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}

	if cfg.RunID != "" {
		attrs = append(attrs, attribute.String("typedna.run_id", cfg.RunID))
	}

	return attrs
}

func newTracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource, stack *closers,
) (trace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		return nooptrace.NewTracerProvider(), nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.OTLPHeaders) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.OTLPHeaders))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg)),
		sdktrace.WithSpanProcessor(NewAttributeFilter(sdktrace.NewBatchSpanProcessor(exporter), nil)),
	)
	*stack = append(*stack, tp.Shutdown)

	return tp, nil
}

func newMeterProvider(
	ctx context.Context, cfg Config, res *resource.Resource, registry *prometheus.Registry, stack *closers,
) (metric.MeterProvider, error) {
	promReader, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res), sdkmetric.WithReader(promReader)}

	if cfg.OTLPEndpoint != "" {
		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}

		if len(cfg.OTLPHeaders) > 0 {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders))
		}

		exporter, exporterErr := otlpmetricgrpc.New(ctx, exporterOpts...)
		if exporterErr != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", exporterErr)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	*stack = append(*stack, mp.Shutdown)

	return mp, nil
}

// selectSampler honours OTEL_TRACES_SAMPLER over the configured ratio.
// Root decisions are always parent-based except for the explicit
// always_on, always_off and traceidratio samplers.
func selectSampler(cfg Config) sdktrace.Sampler {
	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}

	name, hasEnv := os.LookupEnv(envTracesSampler)
	if !hasEnv || name == "" {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}

	if arg := os.Getenv(envTracesSamplerArg); arg != "" {
		ratio = parseRatio(arg)
	}

	root, parentBased := strings.CutPrefix(name, "parentbased_")

	var sampler sdktrace.Sampler

	switch root {
	case "always_off":
		sampler = sdktrace.NeverSample()
	case "traceidratio":
		sampler = sdktrace.TraceIDRatioBased(ratio)
	default:
		sampler = sdktrace.AlwaysSample()
	}

	if parentBased || (root != "always_on" && root != "always_off" && root != "traceidratio") {
		return sdktrace.ParentBased(sampler)
	}

	return sampler
}

func newLogger(cfg Config) *slog.Logger {
	var out io.Writer = os.Stderr
	if cfg.LogWriter != nil {
		out = cfg.LogWriter
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	inner := slog.Handler(slog.NewTextHandler(out, opts))
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewRunHandler(inner, cfg))
}

// ParseOTLPHeaders reads OTEL_EXPORTER_OTLP_HEADERS syntax, "k1=v1,k2=v2".
// Pairs without "=" are skipped; nil means no usable header.
func ParseOTLPHeaders(raw string) map[string]string {
	var headers map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, found := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)

		if !found || key == "" {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[key] = strings.TrimSpace(value)
	}

	return headers
}

// parseRatio falls back to sampling everything on malformed input.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 1
	}

	return ratio
}
