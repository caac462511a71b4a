package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ideaspark/hub/internal/observability"
	"github.com/ideaspark/hub/pkg/cache"
)

const (
	embeddingQueryCacheName = "embedding_query"
	embeddingLoadTimeout    = 30 * time.Second
)

// CachingEmbeddingClient memoises embeddings of query text in an LRU, coalescing concurrent
// requests for the same text into one provider call. Failed loads are not cached.
type CachingEmbeddingClient struct {
	next    EmbeddingClient
	cache   *cache.Loader[[]float32]
	metrics observability.CacheMetrics
}

// NewCachingEmbeddingClient wraps next with a cache of maxEntries texts.
// metrics may be nil when metrics are disabled.
func NewCachingEmbeddingClient(next EmbeddingClient, maxEntries int, metrics observability.CacheMetrics) (*CachingEmbeddingClient, error) {
	c := &CachingEmbeddingClient{next: next, metrics: metrics}

	loader, err := cache.NewLoader(maxEntries, c.load)
	if err != nil {
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	c.cache = loader

	return c, nil
}

// CreateEmbedding returns the cached embedding of the trimmed input, loading it on miss.
// The returned slice is a copy the caller may modify.
func (c *CachingEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	key := strings.TrimSpace(input)

	vec, hit, err := c.cache.Get(ctx, key)
	if err != nil {
		if c.metrics != nil && ctx.Err() == nil {
			c.metrics.RecordLoadError(ctx, embeddingQueryCacheName)
		}

		return nil, err
	}

	if c.metrics != nil {
		if hit {
			c.metrics.RecordHit(ctx, embeddingQueryCacheName)
		} else {
			c.metrics.RecordMiss(ctx, embeddingQueryCacheName)
		}
	}

	return slices.Clone(vec), nil
}

func (c *CachingEmbeddingClient) load(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, embeddingLoadTimeout)
	defer cancel()

	return c.next.CreateEmbedding(ctx, text)
}
