package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/ideaspark/hub/internal/config"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	for _, exporter := range []string{"", "statsd"} {
		mp, handler, err := NewMeterProvider(&config.Config{OtelMetricsExporter: exporter})
		require.NoError(t, err)
		assert.Nil(t, mp)
		assert.Nil(t, handler)
	}

	mp, handler, err := NewMeterProvider(nil)
	require.NoError(t, err)
	assert.Nil(t, mp)
	assert.Nil(t, handler)
}

func TestNewResource_MergesWithDefault(t *testing.T) {
	res, err := newResource()
	require.NoError(t, err, "schema URL must agree with the SDK default resource")

	assert.Equal(t, resource.Default().SchemaURL(), res.SchemaURL())

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, ServiceName, name.AsString())
}

func TestNewMeterProvider_Prometheus(t *testing.T) {
	mp, handler, err := NewMeterProvider(&config.Config{OtelMetricsExporter: MetricsExporterPrometheus})
	require.NoError(t, err)
	require.NotNil(t, mp)
	require.NotNil(t, handler)

	t.Cleanup(func() { _ = ShutdownMeterProvider(context.Background(), mp) })

	metrics, err := NewMetrics(mp.Meter(ServiceName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Layout.RecordRun(ctx, "ok", 120*time.Millisecond, 12)
	metrics.Match.RecordMatch(ctx, "store", "matched")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hub_layout_runs")
	assert.Contains(t, string(body), "hub_match_requests")
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = NewTracerProvider(&config.Config{OtelTracesExporter: "zipkin"})
	require.NoError(t, err)
	assert.Nil(t, tp)

	require.NoError(t, ShutdownTracerProvider(context.Background(), nil))
	require.NoError(t, ShutdownMeterProvider(context.Background(), nil))
}

func TestNewMetrics_NilMeter(t *testing.T) {
	metrics, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}

	return out
}

func TestLayoutMetrics_NormalizesAttributes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter(ServiceName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Layout.RecordRun(ctx, "ok", time.Second, 40)
	metrics.Layout.RecordRun(ctx, "exploded", time.Second, 0)
	metrics.Layout.RecordDropped(ctx, "dimension_mismatch", 2)
	metrics.Layout.RecordDropped(ctx, "malformed", 0)
	metrics.Layout.RecordStaleResult(ctx)

	got := collect(t, reader)

	runs, ok := got[MetricNameLayoutRuns].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	statuses := make(map[string]int64)

	for _, dp := range runs.DataPoints {
		v, _ := dp.Attributes.Value(AttrStatus)
		statuses[v.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{"ok": 1, "other": 1}, statuses)

	dropped, ok := got[MetricNameLayoutDropped].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, dropped.DataPoints, 1)
	assert.Equal(t, int64(2), dropped.DataPoints[0].Value)

	points, ok := got[MetricNameLayoutPoints].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, points.DataPoints, 1)
	assert.Equal(t, uint64(1), points.DataPoints[0].Count)

	assert.Contains(t, got, MetricNameLayoutStaleResults)
}

func TestEventMetrics_ResultsAndDepths(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter(ServiceName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Events.RecordEventPublished(ctx, "idea.created")
	metrics.Events.RecordEventPublished(ctx, "idea.created")
	metrics.Events.RecordEventDiscarded(ctx, "not.an.event")
	metrics.Events.SetChannelDepth(7)
	metrics.Events.SetRiverQueueDepth(3)

	got := collect(t, reader)

	events, ok := got[MetricNameEvents].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byKey := make(map[string]int64)

	for _, dp := range events.DataPoints {
		et, _ := dp.Attributes.Value(AttrEventType)
		res, _ := dp.Attributes.Value(AttrResult)
		byKey[et.AsString()+"/"+res.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{
		"idea.created/published": 2,
		"unknown/discarded":      1,
	}, byKey)

	chanDepth, ok := got[MetricNameEventChannelDepth].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, chanDepth.DataPoints, 1)
	assert.Equal(t, int64(7), chanDepth.DataPoints[0].Value)

	queueDepth, ok := got[MetricNameRiverQueueDepth].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, queueDepth.DataPoints, 1)
	assert.Equal(t, int64(3), queueDepth.DataPoints[0].Value)
}

func TestEmbeddingMetrics_JobOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter(ServiceName))
	require.NoError(t, err)

	ctx := context.Background()
	metrics.Embeddings.RecordJob(ctx, "success", 200*time.Millisecond)
	metrics.Embeddings.RecordJob(ctx, "melted", time.Second)
	metrics.Embeddings.RecordEnqueueFailure(ctx)

	got := collect(t, reader)

	jobs, ok := got[MetricNameEmbeddingJobs].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	statuses := make(map[string]int64)

	for _, dp := range jobs.DataPoints {
		v, _ := dp.Attributes.Value(AttrStatus)
		statuses[v.AsString()] = dp.Value
	}

	assert.Equal(t, map[string]int64{"success": 1, "other": 1}, statuses)

	duration, ok := got[MetricNameEmbeddingDuration].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, duration.DataPoints, 2)

	failures, ok := got[MetricNameEmbeddingEnqueueFailures].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.Equal(t, int64(1), failures.DataPoints[0].Value)
}
