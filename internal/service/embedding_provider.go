package service

import (
	"context"
	"log/slog"

	"github.com/ideaspark/hub/internal/datatypes"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/observability"
)

// embeddingEnqueuer inserts one embedding job per idea; jobs.Enqueuer implements it.
type embeddingEnqueuer interface {
	EnqueueEmbedding(ctx context.Context, ideaID int64) (bool, error)
}

// EmbeddingProvider implements eventPublisher by enqueueing an idea_embedding job for every
// created or imported idea that was stored without an embedding.
type EmbeddingProvider struct {
	enqueuer embeddingEnqueuer
	metrics  observability.EmbeddingMetrics
}

// NewEmbeddingProvider creates a provider that enqueues idea_embedding jobs.
// metrics may be nil when metrics are disabled.
func NewEmbeddingProvider(enqueuer embeddingEnqueuer, metrics observability.EmbeddingMetrics) *EmbeddingProvider {
	return &EmbeddingProvider{
		enqueuer: enqueuer,
		metrics:  metrics,
	}
}

// PublishEvent enqueues jobs for IdeaCreated and IdeaImported events; other events are ignored.
func (p *EmbeddingProvider) PublishEvent(ctx context.Context, event Event) {
	if event.Type != datatypes.IdeaCreated && event.Type != datatypes.IdeaImported {
		return
	}

	var enqueued int64

	for _, idea := range ideasFromEventData(event.Data) {
		if idea.HasEmbedding {
			continue
		}

		inserted, err := p.enqueuer.EnqueueEmbedding(ctx, idea.ID)
		if err != nil {
			if p.metrics != nil {
				p.metrics.RecordEnqueueFailure(ctx)
			}

			slog.Error("embedding: enqueue failed",
				"event_id", event.ID,
				"idea_id", idea.ID,
				"error", err,
			)

			continue
		}

		if inserted {
			enqueued++
		}

		slog.Info("embedding: job enqueued",
			"event_id", event.ID,
			"idea_id", idea.ID,
			"duplicate", !inserted,
		)
	}

	if p.metrics != nil && enqueued > 0 {
		p.metrics.RecordJobsEnqueued(ctx, enqueued)
	}
}

func ideasFromEventData(data any) []models.Idea {
	switch d := data.(type) {
	case *models.Idea:
		if d == nil {
			return nil
		}

		return []models.Idea{*d}
	case []models.Idea:
		return d
	default:
		return nil
	}
}
