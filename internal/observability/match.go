package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MatchMetrics records similarity-match requests made when posting or querying ideas.
type MatchMetrics interface {
	RecordMatch(ctx context.Context, mode, outcome string)
	RecordScore(ctx context.Context, score float64)
}

type matchMetrics struct {
	requests metric.Int64Counter
	scores   metric.Float64Histogram
}

// NewMatchMetrics creates MatchMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewMatchMetrics(meter metric.Meter) (MatchMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNameMatchRequests,
		metric.WithDescription("Similarity match requests by mode (store, local) and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create match requests counter: %w", err)
	}

	scores, err := meter.Float64Histogram(
		MetricNameMatchScore,
		metric.WithDescription("Cosine similarity of returned matches; use to tune SIMILARITY_THRESHOLD"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create match score histogram: %w", err)
	}

	return &matchMetrics{requests: requests, scores: scores}, nil
}

func (m *matchMetrics) RecordMatch(ctx context.Context, mode, outcome string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, NormalizeReason(mode, AllowedMatchModes)),
		attribute.String(AttrStatus, NormalizeReason(outcome, AllowedMatchOutcomes)),
	))
}

func (m *matchMetrics) RecordScore(ctx context.Context, score float64) {
	m.scores.Record(ctx, score)
}
