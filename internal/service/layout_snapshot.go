package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ideaspark/hub/internal/datatypes"
	"github.com/ideaspark/hub/internal/ingest"
	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/observability"
	"github.com/ideaspark/hub/internal/projection"
)

// LayoutSnapshot keeps the latest layout of the configured viewport, recomputed in the
// background whenever the population changes. Each refresh supersedes the one in flight;
// only the result of the latest refresh is ever published.
type LayoutSnapshot struct {
	repo    layoutSource
	cfg     LayoutConfig
	runner  *projection.Runner
	metrics observability.LayoutMetrics
	logger  *slog.Logger

	// refreshMu keeps generation order equal to read order: a later read always gets a later generation.
	refreshMu sync.Mutex

	mu      sync.RWMutex
	current models.LayoutSnapshot
}

// NewLayoutSnapshot creates a snapshot in pending state. timeout bounds one background run.
// metrics may be nil when metrics are disabled.
func NewLayoutSnapshot(
	repo layoutSource,
	cfg LayoutConfig,
	timeout time.Duration,
	metrics observability.LayoutMetrics,
	logger *slog.Logger,
) *LayoutSnapshot {
	if logger == nil {
		logger = slog.Default()
	}

	s := &LayoutSnapshot{
		repo:    repo,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		current: models.LayoutSnapshot{
			Layout: layout.Layout{
				Status: models.LayoutStatusPending,
				Points: []layout.Point{},
				Edges:  []layout.Edge{},
			},
		},
	}

	params := cfg.Projection
	s.runner = projection.NewRunner(projection.RunnerParams{
		Project: func(ctx context.Context, vectors [][]float64) ([]projection.Point, error) {
			if len(vectors) < ingest.MinPopulation {
				return nil, ingest.ErrInsufficientData
			}

			return projection.Project(ctx, vectors, params)
		},
		Timeout: timeout,
		Logger:  logger,
		OnStale: func(projection.Result) {
			if metrics != nil {
				metrics.RecordStaleResult(context.Background())
			}
		},
	})

	return s
}

// Refresh reads the newest ideas and submits a background projection of them, returning
// its generation. Reading the store happens on the caller's goroutine. Concurrent
// refreshes are serialized so the published layout is always of the newest read.
func (s *LayoutSnapshot) Refresh(ctx context.Context) (uint64, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records, err := loadLayoutRecords(ctx, s.repo, s.cfg.MaxIdeas)
	if err != nil {
		return 0, err
	}

	pop, report, err := ingest.Ingest(records, ingest.Options{Dimensions: s.cfg.Dimensions, Logger: s.logger})
	if err != nil && !errors.Is(err, ingest.ErrInsufficientData) {
		return 0, fmt.Errorf("ingest layout records: %w", err)
	}

	gen := s.runner.Submit(pop.Vectors(), func(res projection.Result) {
		s.apply(pop, report, res)
	})

	s.logger.DebugContext(ctx, "layout snapshot: refresh submitted",
		"generation", gen,
		"accepted", report.Accepted,
		"dropped", report.TotalDropped(),
	)

	return gen, nil
}

// apply runs on the runner goroutine for the latest generation only.
func (s *LayoutSnapshot) apply(pop ingest.Population, report ingest.Report, res projection.Result) {
	ctx := context.Background()

	var next layout.Layout

	err := res.Err

	switch {
	case errors.Is(err, ingest.ErrInsufficientData):
		next, err = layout.Insufficient(report), nil
	case err == nil:
		next = layout.Assemble(pop, report, res.Points, s.cfg.Viewport, s.cfg.Edges)
	}

	recordLayoutRun(ctx, s.metrics, next, err, res.Duration)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Error("layout snapshot: projection failed",
			"generation", res.Generation,
			"error", err,
		)

		s.current.LastError = err.Error()

		return
	}

	now := time.Now().UTC()
	s.current = models.LayoutSnapshot{
		Layout:     next,
		Generation: res.Generation,
		ComputedAt: &now,
	}

	s.logger.Info("layout snapshot: updated",
		"generation", res.Generation,
		"status", next.Status,
		"points", len(next.Points),
		"duration", res.Duration,
	)
}

// Snapshot returns the latest published layout.
func (s *LayoutSnapshot) Snapshot() models.LayoutSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current
}

// PublishEvent implements eventPublisher: every change to the embedded population triggers a refresh.
func (s *LayoutSnapshot) PublishEvent(ctx context.Context, event Event) {
	switch event.Type {
	case datatypes.IdeaCreated:
		if idea, ok := event.Data.(*models.Idea); ok && !idea.HasEmbedding {
			return
		}
	case datatypes.IdeaImported, datatypes.IdeaEmbedded, datatypes.IdeaDeleted:
	default:
		return
	}

	if _, err := s.Refresh(ctx); err != nil {
		s.logger.ErrorContext(ctx, "layout snapshot: refresh failed",
			"event_id", event.ID,
			"event_type", event.Type.String(),
			"error", err,
		)
	}
}

// Close cancels any in-flight projection and waits for it to stop.
func (s *LayoutSnapshot) Close() {
	s.runner.Close()
}
