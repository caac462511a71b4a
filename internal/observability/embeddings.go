package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// EmbeddingMetrics covers the embedding pipeline: enqueueing on idea.created, the River
// worker that calls the provider, and the provider circuit breaker.
type EmbeddingMetrics interface {
	RecordJobsEnqueued(ctx context.Context, count int64)
	RecordEnqueueFailure(ctx context.Context)
	// RecordJob counts one worker attempt by outcome and observes its duration.
	RecordJob(ctx context.Context, outcome string, duration time.Duration)
	RecordWorkerError(ctx context.Context, reason string)
	RecordBreakerStateChange(ctx context.Context, state string)
}

type embeddingMetrics struct {
	enqueued        metric.Int64Counter
	enqueueFailures metric.Int64Counter
	jobs            metric.Int64Counter
	jobDuration     metric.Float64Histogram
	workerErrors    metric.Int64Counter
	breakerChanges  metric.Int64Counter
}

// NewEmbeddingMetrics returns (nil, nil) for a nil meter.
func NewEmbeddingMetrics(meter metric.Meter) (EmbeddingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	m := &embeddingMetrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.enqueued, MetricNameEmbeddingJobsEnqueued, "Embedding jobs inserted into River"},
		{&m.enqueueFailures, MetricNameEmbeddingEnqueueFailures, "Ideas whose embedding job could not be inserted"},
		{&m.jobs, MetricNameEmbeddingJobs, "Embedding worker attempts by outcome"},
		{&m.workerErrors, MetricNameEmbeddingWorkerErrors, "Embedding worker failures by reason"},
		{&m.breakerChanges, MetricNameEmbeddingBreakerChanges, "Provider circuit breaker transitions by new state"},
	}

	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("create %s counter: %w", c.name, err)
		}

		*c.dst = counter
	}

	jobDuration, err := meter.Float64Histogram(
		MetricNameEmbeddingDuration,
		metric.WithDescription("Embedding worker attempt duration by outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", MetricNameEmbeddingDuration, err)
	}

	m.jobDuration = jobDuration

	return m, nil
}

func (e *embeddingMetrics) RecordJobsEnqueued(ctx context.Context, count int64) {
	e.enqueued.Add(ctx, count)
}

func (e *embeddingMetrics) RecordEnqueueFailure(ctx context.Context) {
	e.enqueueFailures.Add(ctx, 1)
}

func (e *embeddingMetrics) RecordJob(ctx context.Context, outcome string, duration time.Duration) {
	if !AllowedEmbeddingOutcomeStatus(outcome) {
		outcome = "other"
	}

	attrs := metric.WithAttributes(attribute.String(AttrStatus, outcome))
	e.jobs.Add(ctx, 1, attrs)
	e.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

func (e *embeddingMetrics) RecordWorkerError(ctx context.Context, reason string) {
	reason = NormalizeReason(reason, AllowedEmbeddingWorkerReason)
	e.workerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}

func (e *embeddingMetrics) RecordBreakerStateChange(ctx context.Context, state string) {
	state = NormalizeReason(state, AllowedBreakerStates)
	e.breakerChanges.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrState, state)))
}
