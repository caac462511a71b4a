// Package workers provides River job workers.
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/jobs"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/observability"
	"github.com/ideaspark/hub/internal/service"
)

// IdeaEmbeddingWorker computes and stores the embedding of one idea.
type IdeaEmbeddingWorker struct {
	river.WorkerDefaults[jobs.IdeaEmbeddingArgs]

	ideas    ideaEmbeddingService
	embedder service.EmbeddingClient
	limiter  *rate.Limiter
	metrics  observability.EmbeddingMetrics
}

// ideaEmbeddingService is the minimal interface needed by the worker.
type ideaEmbeddingService interface {
	GetIdea(ctx context.Context, id int64) (*models.Idea, error)
	SetIdeaEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// NewIdeaEmbeddingWorker creates a worker that fetches the idea, calls the provider at no more
// than ratePerSecond calls per second, and stores the embedding. metrics may be nil when
// metrics are disabled.
func NewIdeaEmbeddingWorker(
	ideas ideaEmbeddingService,
	embedder service.EmbeddingClient,
	ratePerSecond float64,
	metrics observability.EmbeddingMetrics,
) *IdeaEmbeddingWorker {
	return &IdeaEmbeddingWorker{
		ideas:    ideas,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		metrics:  metrics,
	}
}

const ideaEmbeddingTimeout = 30 * time.Second

// Timeout limits how long a single embedding job can run.
func (w *IdeaEmbeddingWorker) Timeout(*river.Job[jobs.IdeaEmbeddingArgs]) time.Duration {
	return ideaEmbeddingTimeout
}

// Work loads the idea, embeds its content and persists the vector. Ideas that were deleted or
// already embedded are skipped. Provider failures are retried until the last attempt.
func (w *IdeaEmbeddingWorker) Work(ctx context.Context, job *river.Job[jobs.IdeaEmbeddingArgs]) error {
	ideaID := job.Args.IdeaID
	start := time.Now()
	isLastAttempt := job.Attempt >= job.MaxAttempts

	idea, err := w.ideas.GetIdea(ctx, ideaID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			w.recordOutcome(ctx, start, "skipped")
			slog.Info("embedding: skipped (idea deleted)", "idea_id", ideaID)

			return nil
		}

		return w.fail(ctx, start, isLastAttempt, "get_idea_failed", ideaID, fmt.Errorf("get idea: %w", err))
	}

	if idea.HasEmbedding {
		w.recordOutcome(ctx, start, "skipped")
		slog.Info("embedding: skipped (already embedded)", "idea_id", ideaID)

		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	embedding, err := w.embedder.CreateEmbedding(ctx, idea.Content)
	if err != nil {
		reason := "provider_failed"

		var unavailable *huberrors.UnavailableError
		if errors.As(err, &unavailable) && unavailable.Temporary {
			reason = "provider_throttled"
		}

		return w.fail(ctx, start, isLastAttempt, reason, ideaID, fmt.Errorf("create embedding: %w", err))
	}

	err = w.ideas.SetIdeaEmbedding(ctx, ideaID, embedding)
	if err != nil {
		switch {
		case errors.Is(err, huberrors.ErrNotFound):
			w.recordOutcome(ctx, start, "skipped")
			slog.Info("embedding: skipped (idea deleted while embedding)", "idea_id", ideaID)

			return nil
		case errors.Is(err, huberrors.ErrValidation):
			// unusable vectors are not retried
			return w.fail(ctx, start, true, "invalid_vector", ideaID, err)
		}

		return w.fail(ctx, start, isLastAttempt, "update_failed", ideaID, fmt.Errorf("set idea embedding: %w", err))
	}

	slog.Info("embedding: stored",
		"idea_id", ideaID,
		"dimensions", len(embedding),
	)

	w.recordOutcome(ctx, start, "success")

	return nil
}

// fail records the failure and returns err for River to retry, or nil on the final attempt.
func (w *IdeaEmbeddingWorker) fail(ctx context.Context, start time.Time, final bool, reason string, ideaID int64, err error) error {
	if w.metrics != nil {
		w.metrics.RecordWorkerError(ctx, reason)
	}

	if final {
		w.recordOutcome(ctx, start, "failed_final")
		slog.Error("embedding: failed (final attempt)",
			"idea_id", ideaID,
			"reason", reason,
			"error", err,
		)

		return nil
	}

	w.recordOutcome(ctx, start, "retry")

	return err
}

func (w *IdeaEmbeddingWorker) recordOutcome(ctx context.Context, start time.Time, status string) {
	if w.metrics == nil {
		return
	}

	w.metrics.RecordJob(ctx, status, time.Since(start))
}
