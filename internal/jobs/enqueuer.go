package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const uniqueByPeriodHours = 24

// Inserter inserts jobs. *river.Client[pgx.Tx] satisfies it.
type Inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Enqueuer inserts idea embedding jobs on the embeddings queue.
type Enqueuer struct {
	inserter    Inserter
	queueName   string
	maxAttempts int
}

// NewEnqueuer creates an Enqueuer. maxAttempts <= 0 keeps River's default.
func NewEnqueuer(inserter Inserter, maxAttempts int) *Enqueuer {
	return &Enqueuer{
		inserter:    inserter,
		queueName:   EmbeddingsQueueName,
		maxAttempts: maxAttempts,
	}
}

// EnqueueEmbedding inserts a job for ideaID. It reports false when an identical job
// inserted within the uniqueness window already exists.
func (e *Enqueuer) EnqueueEmbedding(ctx context.Context, ideaID int64) (bool, error) {
	opts := &river.InsertOpts{
		Queue:       e.queueName,
		MaxAttempts: e.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: uniqueByPeriodHours * time.Hour},
	}

	res, err := e.inserter.Insert(ctx, IdeaEmbeddingArgs{IdeaID: ideaID}, opts)
	if err != nil {
		return false, fmt.Errorf("insert idea embedding job: %w", err)
	}

	return res == nil || !res.UniqueSkippedAsDuplicate, nil
}
