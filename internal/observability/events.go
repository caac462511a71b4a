package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EventMetrics records the idea event pipeline: events accepted or dropped by the publisher,
// fan-out latency, and the depth of the event channel and of the embeddings job queue.
type EventMetrics interface {
	RecordEventPublished(ctx context.Context, eventType string)
	RecordEventDiscarded(ctx context.Context, eventType string)
	RecordFanOutDuration(ctx context.Context, duration time.Duration, eventType string)
	SetChannelDepth(depth int)
	SetRiverQueueDepth(depth int)
}

// Values of the result attribute on hub_events_total.
const (
	EventResultPublished = "published"
	EventResultDiscarded = "discarded"
)

type eventMetrics struct {
	events     metric.Int64Counter
	fanOut     metric.Float64Histogram
	chanDepth  atomic.Int64
	queueDepth atomic.Int64
}

// NewEventMetrics returns (nil, nil) for a nil meter. Both depth gauges are reported from
// a single callback that reads the last values stored by SetChannelDepth and SetRiverQueueDepth.
func NewEventMetrics(meter metric.Meter) (EventMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	m := &eventMetrics{}

	var err error

	m.events, err = meter.Int64Counter(
		MetricNameEvents,
		metric.WithDescription("Idea events offered to the publisher, by event type and result"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", MetricNameEvents, err)
	}

	m.fanOut, err = meter.Float64Histogram(
		MetricNameFanOutDuration,
		metric.WithDescription("Time for one idea event to reach every provider"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", MetricNameFanOutDuration, err)
	}

	chanGauge, err := meter.Int64ObservableGauge(
		MetricNameEventChannelDepth,
		metric.WithDescription("Idea events waiting in the publisher channel"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s gauge: %w", MetricNameEventChannelDepth, err)
	}

	queueGauge, err := meter.Int64ObservableGauge(
		MetricNameRiverQueueDepth,
		metric.WithDescription("Embedding jobs available, retryable or scheduled in River"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s gauge: %w", MetricNameRiverQueueDepth, err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(chanGauge, m.chanDepth.Load())
		o.ObserveInt64(queueGauge, m.queueDepth.Load())

		return nil
	}, chanGauge, queueGauge)
	if err != nil {
		return nil, fmt.Errorf("register depth gauge callback: %w", err)
	}

	return m, nil
}

func (e *eventMetrics) count(ctx context.Context, eventType, result string) {
	e.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrEventType, NormalizeEventType(eventType)),
		attribute.String(AttrResult, result),
	))
}

func (e *eventMetrics) RecordEventPublished(ctx context.Context, eventType string) {
	e.count(ctx, eventType, EventResultPublished)
}

func (e *eventMetrics) RecordEventDiscarded(ctx context.Context, eventType string) {
	e.count(ctx, eventType, EventResultDiscarded)
}

func (e *eventMetrics) RecordFanOutDuration(ctx context.Context, duration time.Duration, eventType string) {
	e.fanOut.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String(AttrEventType, NormalizeEventType(eventType))))
}

func (e *eventMetrics) SetChannelDepth(depth int) {
	e.chanDepth.Store(int64(depth))
}

func (e *eventMetrics) SetRiverQueueDepth(depth int) {
	e.queueDepth.Store(int64(depth))
}
