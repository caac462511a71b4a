// Package jobs defines the River jobs of the embedding pipeline and the helpers that enqueue them.
package jobs

import (
	"github.com/riverqueue/river"
)

const (
	ideaEmbeddingKind = "idea_embedding"
	// EmbeddingsQueueName is the River queue used for idea embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// IdeaEmbeddingArgs is the job payload for computing and storing the embedding of one idea.
// Uniqueness is by IdeaID so repeated events or backfill runs do not create duplicate jobs.
type IdeaEmbeddingArgs struct {
	IdeaID int64 `json:"idea_id" river:"unique"`
}

// Kind returns the River job kind.
func (IdeaEmbeddingArgs) Kind() string { return ideaEmbeddingKind }

var _ river.JobArgs = IdeaEmbeddingArgs{}
