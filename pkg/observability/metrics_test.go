package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/typedna/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.PipelineMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	pm, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return pm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumByStatus(t *testing.T, m *metricdata.Metrics) map[string]int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)

	out := make(map[string]int64)

	for _, dp := range sum.DataPoints {
		status, _ := dp.Attributes.Value(attribute.Key("status"))
		out[status.AsString()] += dp.Value
	}

	return out
}

func TestPipelineMetrics_RecordDatasetLoad(t *testing.T) {
	t.Parallel()

	pm, reader := setupTestMeter(t)
	ctx := context.Background()

	pm.RecordDatasetLoad(ctx, 120, nil)
	pm.RecordDatasetLoad(ctx, 30, nil)
	pm.RecordDatasetLoad(ctx, 999, errors.New("boom"))

	rm := collectMetrics(t, reader)

	datasets := findMetric(rm, "typedna.datasets.loaded.total")
	require.NotNil(t, datasets)
	assert.Equal(t, map[string]int64{"ok": 2, "error": 1}, sumByStatus(t, datasets))

	records := findMetric(rm, "typedna.records.materialized.total")
	require.NotNil(t, records)

	sum, ok := records.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(150), sum.DataPoints[0].Value)
}

func TestPipelineMetrics_RecordViewBuild(t *testing.T) {
	t.Parallel()

	pm, reader := setupTestMeter(t)
	ctx := context.Background()

	pm.RecordViewBuild(ctx, "month", 40, 20*time.Millisecond, nil)
	pm.RecordViewBuild(ctx, "week", 0, time.Millisecond, errors.New("empty"))

	rm := collectMetrics(t, reader)

	views := findMetric(rm, "typedna.views.built.total")
	require.NotNil(t, views)
	assert.Equal(t, map[string]int64{"ok": 1, "error": 1}, sumByStatus(t, views))

	duration := findMetric(rm, "typedna.view.build.duration.seconds")
	require.NotNil(t, duration)

	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	entities := findMetric(rm, "typedna.view.entities")
	require.NotNil(t, entities)

	entityHist, ok := entities.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, entityHist.DataPoints, 1)
	assert.Equal(t, uint64(1), entityHist.DataPoints[0].Count)
	assert.Equal(t, int64(40), entityHist.DataPoints[0].Sum)
}

func TestPipelineMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var pm *observability.PipelineMetrics

	assert.NotPanics(t, func() {
		pm.RecordDatasetLoad(context.Background(), 1, nil)
		pm.RecordViewBuild(context.Background(), "day", 1, time.Second, nil)
	})
}
