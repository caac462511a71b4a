package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LayoutMetrics records projection runs of the idea layout (synchronous and background).
type LayoutMetrics interface {
	RecordRun(ctx context.Context, status string, duration time.Duration, points int)
	RecordDropped(ctx context.Context, reason string, count int)
	RecordStaleResult(ctx context.Context)
}

type layoutMetrics struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
	points   metric.Int64Histogram
	dropped  metric.Int64Counter
	stale    metric.Int64Counter
}

// NewLayoutMetrics creates LayoutMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewLayoutMetrics(meter metric.Meter) (LayoutMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	runs, err := meter.Int64Counter(
		MetricNameLayoutRuns,
		metric.WithDescription("Total layout computations by status (ok, insufficient_data, failed, cancelled)"),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout runs counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameLayoutDuration,
		metric.WithDescription("Layout computation duration including projection (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout duration histogram: %w", err)
	}

	points, err := meter.Int64Histogram(
		MetricNameLayoutPoints,
		metric.WithDescription("Number of ideas placed by a successful layout"),
		metric.WithExplicitBucketBoundaries(3, 10, 25, 50, 100, 250, 500, 1000, 2500),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout points histogram: %w", err)
	}

	dropped, err := meter.Int64Counter(
		MetricNameLayoutDropped,
		metric.WithDescription("Records excluded from a layout at ingestion, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout dropped counter: %w", err)
	}

	stale, err := meter.Int64Counter(
		MetricNameLayoutStaleResults,
		metric.WithDescription("Background projection results discarded because a newer run was submitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("create layout stale results counter: %w", err)
	}

	return &layoutMetrics{
		runs:     runs,
		duration: duration,
		points:   points,
		dropped:  dropped,
		stale:    stale,
	}, nil
}

func (l *layoutMetrics) RecordRun(ctx context.Context, status string, duration time.Duration, points int) {
	status = NormalizeReason(status, AllowedLayoutStatuses)
	attrs := metric.WithAttributes(attribute.String(AttrStatus, status))

	l.runs.Add(ctx, 1, attrs)
	l.duration.Record(ctx, duration.Seconds(), attrs)

	if status == "ok" {
		l.points.Record(ctx, int64(points))
	}
}

func (l *layoutMetrics) RecordDropped(ctx context.Context, reason string, count int) {
	if count <= 0 {
		return
	}

	reason = NormalizeReason(reason, AllowedDropReasons)
	l.dropped.Add(ctx, int64(count), metric.WithAttributes(attribute.String(AttrReason, reason)))
}

func (l *layoutMetrics) RecordStaleResult(ctx context.Context) {
	l.stale.Add(ctx, 1)
}
