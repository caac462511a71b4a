package jobs

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/ideaspark/hub/internal/observability"
)

// ErrorHandler logs job errors and panics and counts panics in the embedding metrics.
type ErrorHandler struct {
	metrics observability.EmbeddingMetrics
}

// NewErrorHandler creates an ErrorHandler. metrics may be nil when metrics are disabled.
func NewErrorHandler(metrics observability.EmbeddingMetrics) *ErrorHandler {
	return &ErrorHandler{metrics: metrics}
}

// HandleError is called when a job returns an error.
func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	slog.ErrorContext(ctx, "job failed",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"attempt", job.Attempt,
		"max_attempts", job.MaxAttempts,
		"error", err,
	)

	// nil keeps River's retry schedule
	return nil
}

// HandlePanic is called when a job panics.
func (h *ErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	slog.ErrorContext(ctx, "job panicked",
		"job_kind", job.Kind,
		"job_id", job.ID,
		"attempt", job.Attempt,
		"panic_value", panicVal,
		"stack_trace", trace,
	)

	if h.metrics != nil && job.Kind == ideaEmbeddingKind {
		h.metrics.RecordWorkerError(ctx, "panic")
	}

	return nil
}

var _ river.ErrorHandler = (*ErrorHandler)(nil)
