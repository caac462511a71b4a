package service

import (
	"context"

	"github.com/ideaspark/hub/internal/huberrors"
)

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (e.g. OpenAI, Google Gemini, the offline mock).
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ErrEmbeddingUnavailable matches every error returned when no embedding could be computed,
// whether the provider failed the call or its circuit is open.
var ErrEmbeddingUnavailable = huberrors.ErrUnavailable

const embeddingDependency = "embedding provider"
