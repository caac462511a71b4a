package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/observability"
	"github.com/ideaspark/hub/internal/projection"
)

const defaultLayoutConcurrency = 2

// LayoutConfig is the process configuration shared by on-demand and background layouts.
type LayoutConfig struct {
	// Dimensions pins the population dimension; zero infers it from the ideas.
	Dimensions int
	// MaxIdeas caps the population to the newest ideas.
	MaxIdeas   int
	Viewport   layout.Viewport
	Edges      layout.EdgeOptions
	Projection projection.Params
	// MaxConcurrent bounds on-demand projections running at once.
	MaxConcurrent int64
}

// layoutSource reads the newest ideas with their embeddings in pgvector text form.
type layoutSource interface {
	ListForLayout(ctx context.Context, limit int) ([]models.EmbeddedIdea, error)
}

// LayoutService computes the idea layout on demand, one fresh projection per request.
type LayoutService struct {
	repo    layoutSource
	cfg     LayoutConfig
	sem     *semaphore.Weighted
	metrics observability.LayoutMetrics
	logger  *slog.Logger
}

// NewLayoutService creates a LayoutService. metrics may be nil when metrics are disabled.
func NewLayoutService(repo layoutSource, cfg LayoutConfig, metrics observability.LayoutMetrics, logger *slog.Logger) *LayoutService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultLayoutConcurrency
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &LayoutService{
		repo:    repo,
		cfg:     cfg,
		sem:     semaphore.NewWeighted(cfg.MaxConcurrent),
		metrics: metrics,
		logger:  logger,
	}
}

// Compute projects the newest ideas into the requested viewport. Fewer than three usable
// embeddings yield an insufficient_data layout. A failed projection returns an error
// wrapping projection.ErrProjectionFailed and no layout.
func (s *LayoutService) Compute(ctx context.Context, q *models.LayoutQuery) (layout.Layout, error) {
	opts, limit := s.optionsFor(q)
	if err := opts.Viewport.Validate(); err != nil {
		return layout.Layout{}, huberrors.NewValidationError("viewport", err.Error())
	}

	records, err := loadLayoutRecords(ctx, s.repo, limit)
	if err != nil {
		return layout.Layout{}, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return layout.Layout{}, fmt.Errorf("wait for projection slot: %w", err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	out, err := layout.Build(ctx, records, opts)
	recordLayoutRun(ctx, s.metrics, out, err, time.Since(start))

	if err != nil {
		s.logger.ErrorContext(ctx, "layout: projection failed", "ideas", len(records), "error", err)

		return layout.Layout{}, fmt.Errorf("build layout: %w", err)
	}

	return out, nil
}

func (s *LayoutService) optionsFor(q *models.LayoutQuery) (layout.Options, int) {
	opts := layout.Options{
		Dimensions: s.cfg.Dimensions,
		Projection: s.cfg.Projection,
		Viewport:   s.cfg.Viewport,
		Edges:      s.cfg.Edges,
		Logger:     s.logger,
	}
	limit := s.cfg.MaxIdeas

	if q == nil {
		return opts, limit
	}

	if q.Width > 0 {
		opts.Viewport.Width = q.Width
	}

	if q.Height > 0 {
		opts.Viewport.Height = q.Height
	}

	if q.Margin != nil {
		opts.Viewport.Margin = *q.Margin
	}

	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}

	return opts, limit
}

func loadLayoutRecords(ctx context.Context, repo layoutSource, limit int) ([]ingest.Record, error) {
	ideas, err := repo.ListForLayout(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load ideas for layout: %w", err)
	}

	records := make([]ingest.Record, len(ideas))
	for i, idea := range ideas {
		records[i] = ingest.Record{
			ID:        idea.ID,
			Author:    idea.Author,
			Content:   idea.Content,
			Embedding: idea.EmbeddingText,
		}
	}

	return records, nil
}

func recordLayoutRun(ctx context.Context, metrics observability.LayoutMetrics, out layout.Layout, err error, elapsed time.Duration) {
	if metrics == nil {
		return
	}

	status := string(out.Status)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
	case err != nil:
		status = "failed"
	}

	metrics.RecordRun(ctx, status, elapsed, len(out.Points))

	for reason, n := range out.Dropped {
		metrics.RecordDropped(ctx, string(reason), n)
	}
}
