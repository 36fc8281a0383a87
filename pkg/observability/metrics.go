package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDatasetsTotal  = "typedna.datasets.loaded.total"
	metricRecordsTotal   = "typedna.records.materialized.total"
	metricViewsTotal     = "typedna.views.built.total"
	metricViewDuration   = "typedna.view.build.duration.seconds"
	metricEntitiesInView = "typedna.view.entities"

	attrStatus = "status"
	attrStep   = "step"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s: views over small datasets
// build in milliseconds, multi-year daily views take seconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// entityBucketBoundaries covers views from a handful to tens of thousands of entities.
var entityBucketBoundaries = []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000}

// PipelineMetrics holds the OTel instruments for dataset loading and view building.
type PipelineMetrics struct {
	datasetsTotal  metric.Int64Counter
	recordsTotal   metric.Int64Counter
	viewsTotal     metric.Int64Counter
	viewDuration   metric.Float64Histogram
	entitiesInView metric.Int64Histogram
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	datasets, err := mt.Int64Counter(metricDatasetsTotal,
		metric.WithDescription("Total datasets loaded"),
		metric.WithUnit("{dataset}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDatasetsTotal, err)
	}

	records, err := mt.Int64Counter(metricRecordsTotal,
		metric.WithDescription("Total edit records materialized"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsTotal, err)
	}

	views, err := mt.Int64Counter(metricViewsTotal,
		metric.WithDescription("Total views built"),
		metric.WithUnit("{view}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricViewsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricViewDuration,
		metric.WithDescription("View build duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricViewDuration, err)
	}

	entities, err := mt.Int64Histogram(metricEntitiesInView,
		metric.WithDescription("Entities selected per view"),
		metric.WithUnit("{entity}"),
		metric.WithExplicitBucketBoundaries(entityBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEntitiesInView, err)
	}

	return &PipelineMetrics{
		datasetsTotal:  datasets,
		recordsTotal:   records,
		viewsTotal:     views,
		viewDuration:   duration,
		entitiesInView: entities,
	}, nil
}

// RecordDatasetLoad records one dataset load and the records it produced.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordDatasetLoad(ctx context.Context, records int, err error) {
	if pm == nil {
		return
	}

	pm.datasetsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status(err))))

	if err == nil {
		pm.recordsTotal.Add(ctx, int64(records))
	}
}

// RecordViewBuild records one view build.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordViewBuild(ctx context.Context, step string, entities int, duration time.Duration, err error) {
	if pm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrStep, step),
		attribute.String(attrStatus, status(err)),
	)

	pm.viewsTotal.Add(ctx, 1, attrs)
	pm.viewDuration.Record(ctx, duration.Seconds(), attrs)

	if err == nil {
		pm.entitiesInView.Record(ctx, int64(entities), metric.WithAttributes(attribute.String(attrStep, step)))
	}
}

func status(err error) string {
	if err != nil {
		return statusError
	}

	return statusOK
}
