package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ideaspark/hub/internal/datatypes"
	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/jobs"
	"github.com/ideaspark/hub/internal/models"
	vectors "github.com/ideaspark/hub/pkg/embeddings"
)

const (
	defaultFeedLimit = 50
	// MaxImportIdeas is the largest batch accepted by Import.
	MaxImportIdeas = 100
)

// IdeasRepository defines the interface for idea data access.
type IdeasRepository interface {
	Create(ctx context.Context, req *models.CreateIdeaRequest) (*models.Idea, error)
	CreateMany(ctx context.Context, reqs []models.CreateIdeaRequest) ([]models.Idea, error)
	GetByID(ctx context.Context, id int64) (*models.Idea, error)
	List(ctx context.Context, filters *models.ListIdeasFilters) ([]models.Idea, error)
	Count(ctx context.Context, filters *models.ListIdeasFilters) (int64, error)
	UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error
	ListIDsMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]int64, error)
	Delete(ctx context.Context, id int64) error
}

// IdeasService handles business logic for ideas: posting with the similarity alert,
// the feed, bulk import and embedding upkeep.
type IdeasService struct {
	repo      IdeasRepository
	embedder  EmbeddingClient
	matches   *MatchService
	publisher MessagePublisher
	enqueuer  *jobs.Enqueuer
	dims      int
}

// IdeasServiceParams configures an IdeasService. Embedder and Enqueuer are nil when no
// embedding provider is configured; ideas are then stored without embeddings unless the
// client sends one.
type IdeasServiceParams struct {
	Repo       IdeasRepository
	Embedder   EmbeddingClient
	Matches    *MatchService
	Publisher  MessagePublisher
	Enqueuer   *jobs.Enqueuer
	Dimensions int
}

// NewIdeasService creates a new ideas service.
func NewIdeasService(p IdeasServiceParams) *IdeasService {
	return &IdeasService{
		repo:      p.Repo,
		embedder:  p.Embedder,
		matches:   p.Matches,
		publisher: p.Publisher,
		enqueuer:  p.Enqueuer,
		dims:      p.Dimensions,
	}
}

// SetEnqueuer enables backfill once the River client exists. The client needs the embedding
// worker, which needs this service, so the enqueuer cannot be passed to NewIdeasService.
// Must only be called during startup.
func (s *IdeasService) SetEnqueuer(enqueuer *jobs.Enqueuer) {
	s.enqueuer = enqueuer
}

// CreateIdea embeds the content (unless the client sent an embedding), stores the idea and
// matches it against other authors' ideas. When the embedding cannot be computed nothing is
// stored and an UnavailableError is returned. A failed match after the insert keeps the idea
// and reports MatchStatusUnavailable.
func (s *IdeasService) CreateIdea(ctx context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error) {
	embedding, err := s.resolveEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}

	stored := *req
	stored.Embedding = embedding

	idea, err := s.repo.Create(ctx, &stored)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishEvent(ctx, datatypes.IdeaCreated, idea)

	resp := &models.CreateIdeaResponse{
		Idea:        *idea,
		MatchStatus: models.MatchStatusSkipped,
		Matches:     []models.IdeaMatch{},
	}

	if embedding == nil {
		s.matches.record(ctx, string(models.MatchStatusSkipped))

		return resp, nil
	}

	matches, err := s.matches.FindDefault(ctx, embedding, idea.Author)
	if err != nil {
		slog.WarnContext(ctx, "match after create failed", "idea_id", idea.ID, "error", err)

		resp.MatchStatus = models.MatchStatusUnavailable

		return resp, nil
	}

	resp.Matches = matches
	resp.MatchStatus = models.MatchStatusNoMatch

	if len(matches) > 0 {
		resp.MatchStatus = models.MatchStatusMatched
	}

	return resp, nil
}

// resolveEmbedding validates a client-supplied embedding or computes one from the content.
// It returns nil without error when there is neither an embedding nor a provider.
func (s *IdeasService) resolveEmbedding(ctx context.Context, req *models.CreateIdeaRequest) ([]float32, error) {
	if len(req.Embedding) > 0 {
		if err := vectors.Validate(req.Embedding, s.dims); err != nil {
			return nil, huberrors.NewValidationError("embedding", err.Error())
		}

		return req.Embedding, nil
	}

	if s.embedder == nil {
		return nil, nil
	}

	embedding, err := s.embedder.CreateEmbedding(ctx, req.Content)
	if err != nil {
		return nil, asEmbeddingUnavailable(err)
	}

	if err := vectors.Validate(embedding, s.dims); err != nil {
		return nil, huberrors.NewUnavailableError(embeddingDependency, false, err)
	}

	return embedding, nil
}

// ImportIdeas stores up to MaxImportIdeas ideas in one transaction. Client-supplied embeddings
// are validated; ideas without one are embedded later by the background worker.
func (s *IdeasService) ImportIdeas(ctx context.Context, req *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error) {
	if len(req.Ideas) > MaxImportIdeas {
		return nil, huberrors.NewLimitExceededError(fmt.Sprintf("at most %d ideas per import", MaxImportIdeas))
	}

	for i := range req.Ideas {
		if len(req.Ideas[i].Embedding) == 0 {
			continue
		}

		if err := vectors.Validate(req.Ideas[i].Embedding, s.dims); err != nil {
			return nil, huberrors.NewValidationError(fmt.Sprintf("ideas[%d].embedding", i), err.Error())
		}
	}

	ideas, err := s.repo.CreateMany(ctx, req.Ideas)
	if err != nil {
		return nil, err
	}

	s.publisher.PublishEvent(ctx, datatypes.IdeaImported, ideas)

	return &models.ImportIdeasResponse{Data: ideas, Count: len(ideas)}, nil
}

// GetIdea retrieves a single idea by ID.
func (s *IdeasService) GetIdea(ctx context.Context, id int64) (*models.Idea, error) {
	return s.repo.GetByID(ctx, id)
}

// ListIdeas returns a page of the feed, newest first, with the total count.
func (s *IdeasService) ListIdeas(ctx context.Context, filters *models.ListIdeasFilters) (*models.ListIdeasResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = defaultFeedLimit
	}

	ideas, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return nil, err
	}

	return &models.ListIdeasResponse{
		Data:   ideas,
		Total:  total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, nil
}

// DeleteIdea removes an idea and publishes IdeaDeleted.
func (s *IdeasService) DeleteIdea(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publisher.PublishEvent(ctx, datatypes.IdeaDeleted, id)

	return nil
}

// SetIdeaEmbedding stores an embedding computed by the background worker and publishes IdeaEmbedded.
func (s *IdeasService) SetIdeaEmbedding(ctx context.Context, id int64, embedding []float32) error {
	if err := vectors.Validate(embedding, s.dims); err != nil {
		return huberrors.NewValidationError("embedding", err.Error())
	}

	if err := s.repo.UpdateEmbedding(ctx, id, embedding); err != nil {
		return err
	}

	s.publisher.PublishEvent(ctx, datatypes.IdeaEmbedded, id)

	return nil
}

// ErrNoEmbeddingProvider is returned by BackfillEmbeddings when embeddings cannot be computed.
var ErrNoEmbeddingProvider = errors.New("no embedding provider is configured")

// BackfillEmbeddings enqueues an embedding job for every idea stored without one.
func (s *IdeasService) BackfillEmbeddings(ctx context.Context) (*models.BackfillResponse, error) {
	if s.enqueuer == nil {
		return nil, huberrors.NewUnavailableError(embeddingDependency, false, ErrNoEmbeddingProvider)
	}

	stats, err := jobs.Backfill(ctx, s.repo, s.enqueuer, jobs.DefaultBackfillPageSize)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "embedding backfill enqueued",
		"scanned", stats.Scanned,
		"enqueued", stats.Enqueued,
		"duplicates", stats.Duplicates,
		"errors", stats.Errors,
	)

	return &models.BackfillResponse{Enqueued: stats.Enqueued}, nil
}
