package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultBackfillPageSize is the number of idea IDs read per page during a backfill.
const DefaultBackfillPageSize = 500

// MissingEmbeddingLister pages through ideas whose embedding is NULL, by ascending ID.
type MissingEmbeddingLister interface {
	ListIDsMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]int64, error)
}

// BackfillStats holds statistics from a backfill operation.
type BackfillStats struct {
	Scanned    int
	Enqueued   int
	Duplicates int
	Errors     int
}

// Backfill enqueues embedding jobs for every idea that is missing an embedding.
// A failed insert is logged and counted; a failed page read stops the run and
// returns the stats gathered so far.
func Backfill(ctx context.Context, lister MissingEmbeddingLister, enqueuer *Enqueuer, pageSize int) (*BackfillStats, error) {
	if pageSize <= 0 {
		pageSize = DefaultBackfillPageSize
	}

	stats := &BackfillStats{}

	var afterID int64

	for {
		ids, err := lister.ListIDsMissingEmbedding(ctx, afterID, pageSize)
		if err != nil {
			return stats, fmt.Errorf("list ideas missing embedding: %w", err)
		}

		for _, id := range ids {
			stats.Scanned++

			inserted, err := enqueuer.EnqueueEmbedding(ctx, id)
			if err != nil {
				slog.Error("failed to enqueue idea embedding job", "idea_id", id, "error", err)

				stats.Errors++

				continue
			}

			if inserted {
				stats.Enqueued++
			} else {
				stats.Duplicates++
			}
		}

		if len(ids) < pageSize {
			return stats, nil
		}

		afterID = ids[len(ids)-1]
	}
}
