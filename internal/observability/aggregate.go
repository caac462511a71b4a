package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all hub metric collectors. When metrics are disabled, all fields are nil.
// Components that accept one of the interfaces can receive the corresponding field; they
// already handle nil.
type Metrics struct {
	Events     EventMetrics
	Embeddings EmbeddingMetrics
	Cache      CacheMetrics
	API        APIMetrics
	Layout     LayoutMetrics
	Match      MatchMetrics
}

// NewMetrics creates every metric group from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	events, err := NewEventMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("event metrics: %w", err)
	}

	embeddings, err := NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("embedding metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	api, err := NewAPIMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	layout, err := NewLayoutMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("layout metrics: %w", err)
	}

	match, err := NewMatchMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("match metrics: %w", err)
	}

	return &Metrics{
		Events:     events,
		Embeddings: embeddings,
		Cache:      cache,
		API:        api,
		Layout:     layout,
		Match:      match,
	}, nil
}
