// Package app wires configuration, telemetry, datasets and views into the
// operations the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/typedna/pkg/config"
	"github.com/Sumatoshi-tech/typedna/pkg/dataset"
	"github.com/Sumatoshi-tech/typedna/pkg/identity"
	"github.com/Sumatoshi-tech/typedna/pkg/observability"
	"github.com/Sumatoshi-tech/typedna/pkg/view"
)

// ErrNoDatasets is returned when no dataset path is given.
var ErrNoDatasets = errors.New("at least one dataset is required")

// Service loads datasets and builds views. It is safe for concurrent use
// once constructed.
type Service struct {
	cfg     *config.Config
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics *observability.PipelineMetrics
}

// New creates a Service.
func New(cfg *config.Config, providers observability.Providers) (*Service, error) {
	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create pipeline metrics: %w", err)
	}

	logger := providers.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:     cfg,
		tracer:  providers.Tracer,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// PreprocessOptions maps the dataset section of the configuration.
func (s *Service) PreprocessOptions() dataset.Options {
	return dataset.Options{
		IgnoreTypes:     s.cfg.Dataset.IgnoreTypes,
		MaxCommitFiles:  s.cfg.Dataset.MaxCommitFiles,
		CollapseMethods: s.cfg.Dataset.CollapseMethods,
	}
}

// LoadDatasets loads and preprocesses every path concurrently. The result
// keeps the order of paths. The first failure cancels the rest.
func (s *Service) LoadDatasets(ctx context.Context, paths []string) ([]*dataset.Dataset, error) {
	if len(paths) == 0 {
		return nil, ErrNoDatasets
	}

	ctx, span := s.tracer.Start(ctx, "typedna.load_datasets",
		trace.WithAttributes(attribute.Int("dataset.count", len(paths))))
	defer span.End()

	out := make([]*dataset.Dataset, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		g.Go(func() error {
			ds, err := s.loadDataset(ctx, path)
			if err != nil {
				return fmt.Errorf("load %s: %w", path, err)
			}

			out[i] = ds

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset load failed")

		return nil, err
	}

	return out, nil
}

func (s *Service) loadDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("cancelled: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "typedna.load_dataset",
		trace.WithAttributes(attribute.String("dataset.path", path)))
	defer span.End()

	start := time.Now()

	ds, err := s.load(path)

	records := 0
	if ds != nil {
		records = len(ds.Records())
	}

	s.metrics.RecordDatasetLoad(ctx, records, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("dataset.records", records),
		attribute.Int("dataset.commits", len(ds.Commits())),
	)

	ctx = observability.WithDataset(ctx, ds.Name)

	s.logger.DebugContext(ctx, "dataset loaded",
		"dataset.path", path,
		"records", records,
		"commits", len(ds.Commits()),
		"dropped_commits", ds.DroppedCommits,
		"dropped_edits", ds.DroppedEdits,
		"duration", time.Since(start))

	return ds, nil
}

func (s *Service) load(path string) (*dataset.Dataset, error) {
	project, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}

	return dataset.Preprocess(project, s.PreprocessOptions())
}

// Authors builds the author configuration of ds from the aliases file, or
// an empty one when none is configured. Every identity of ds is tracked.
func (s *Service) Authors(ds *dataset.Dataset, aliasesFile string) (*identity.Configuration, error) {
	if aliasesFile == "" {
		aliasesFile = s.cfg.Authors.AliasesFile
	}

	var file identity.ConfigurationFile

	if aliasesFile != "" {
		loaded, err := identity.LoadConfigurationFile(aliasesFile)
		if err != nil {
			return nil, err
		}

		file = loaded
	}

	authors, err := identity.NewConfiguration(ds.Registry, file)
	if err != nil {
		return nil, err
	}

	authors.Track(ds.Authors...)

	return authors, nil
}

// BuildView applies f to ds. When f names no authors, the authors enabled in
// the author configuration restrict the view.
func (s *Service) BuildView(
	ctx context.Context, ds *dataset.Dataset, authors *identity.Configuration, f *view.Filter,
) (*view.View, error) {
	filter := view.Filter{}
	if f != nil {
		filter = *f
	}

	if len(filter.Authors) == 0 && authors != nil {
		filter.Authors = authors.EnabledIDs()
	}

	ctx, span := s.tracer.Start(ctx, "typedna.build_view",
		trace.WithAttributes(
			attribute.String("view.step", string(filter.Step)),
			attribute.Int("view.limit", filter.Limit),
			attribute.StringSlice("view.authors", filter.Authors),
		))
	defer span.End()

	opts := []view.Option{view.WithLogger(s.logger)}
	if authors != nil {
		opts = append(opts, view.WithAuthorResolver(authors))
	}

	start := time.Now()

	v, err := view.NewBuilder(opts...).Build(ds, &filter)

	entities := 0
	step := string(filter.Step)

	if v != nil {
		entities = len(v.Types)
		step = string(v.Step)
	}

	s.metrics.RecordViewBuild(ctx, step, entities, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "view build failed")

		return nil, fmt.Errorf("build view of %s: %w", ds.Name, err)
	}

	span.SetAttributes(
		attribute.Int("view.entities", entities),
		attribute.Int("view.slices", len(v.TimeSlices)),
	)

	s.logger.InfoContext(observability.WithDataset(ctx, ds.Name), "view built",
		"entities", entities,
		"slices", len(v.TimeSlices),
		"step", step)

	return v, nil
}
