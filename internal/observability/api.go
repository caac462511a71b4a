package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// APIMetrics records requests the HTTP middleware rejects before they reach a handler.
type APIMetrics interface {
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordUnauthorized(ctx context.Context, reason string)
}

type apiMetrics struct {
	bodyTooLarge metric.Int64Counter
	unauthorized metric.Int64Counter
}

// NewAPIMetrics creates APIMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewAPIMetrics(meter metric.Meter) (APIMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	bodyTooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected with 413 because the body exceeded MAX_REQUEST_BODY_BYTES."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create request body too large counter: %w", err)
	}

	unauthorized, err := meter.Int64Counter(
		MetricNameRequestsUnauthorized,
		metric.WithDescription("Requests rejected with 401 by reason (missing, malformed, invalid)."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create unauthorized requests counter: %w", err)
	}

	return &apiMetrics{bodyTooLarge: bodyTooLarge, unauthorized: unauthorized}, nil
}

func (a *apiMetrics) RecordRequestBodyTooLarge(ctx context.Context) {
	a.bodyTooLarge.Add(ctx, 1)
}

func (a *apiMetrics) RecordUnauthorized(ctx context.Context, reason string) {
	reason = NormalizeReason(reason, AllowedAuthFailures)
	a.unauthorized.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrReason, reason)))
}
