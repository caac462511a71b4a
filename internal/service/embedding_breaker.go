package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/observability"
)

// BreakerEmbeddingClient protects the embedding provider with a circuit breaker. After
// maxFailures consecutive failures calls fail fast for openTimeout, then a single trial call
// decides whether the circuit closes again. Every error it returns is an UnavailableError.
type BreakerEmbeddingClient struct {
	next EmbeddingClient
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerEmbeddingClient wraps next. metrics may be nil when metrics are disabled.
func NewBreakerEmbeddingClient(
	next EmbeddingClient,
	maxFailures int,
	openTimeout time.Duration,
	metrics observability.EmbeddingMetrics,
) *BreakerEmbeddingClient {
	threshold := uint32(max(maxFailures, 1)) //nolint:gosec // G115: bounded below by 1, config keeps it small

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-provider",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("embedding: circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)

			if metrics != nil {
				metrics.RecordBreakerStateChange(context.Background(), to.String())
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerEmbeddingClient{next: next, cb: cb}
}

// CreateEmbedding calls the provider through the breaker.
func (c *BreakerEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	out, err := c.cb.Execute(func() (any, error) {
		return c.next.CreateEmbedding(ctx, input)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, huberrors.NewUnavailableError(embeddingDependency, true, err)
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}

		return nil, huberrors.NewUnavailableError(embeddingDependency, false, err)
	}

	vec, _ := out.([]float32)

	return vec, nil
}

// State returns the breaker state name: closed, half-open or open.
func (c *BreakerEmbeddingClient) State() string {
	return c.cb.State().String()
}
