package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ideaspark/hub/internal/config"
	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/matcher"
	"github.com/ideaspark/hub/internal/models"
	"github.com/ideaspark/hub/internal/observability"
	vectors "github.com/ideaspark/hub/pkg/embeddings"
)

// matchRepository is the store side of similarity matching.
type matchRepository interface {
	MatchIdeas(ctx context.Context, vector []float32, excludeAuthor string, threshold float64, limit int) ([]models.IdeaMatch, error)
	ListEmbedded(ctx context.Context, excludeAuthor string) ([]models.Idea, error)
}

// MatchConfig holds the matching defaults.
type MatchConfig struct {
	// Mode is config.MatchModeStore (pgvector) or config.MatchModeLocal (in-process scan).
	Mode       string
	Threshold  float64
	Limit      int
	Dimensions int
}

// MatchService answers "which ideas by other authors are close to this vector".
type MatchService struct {
	repo     matchRepository
	embedder EmbeddingClient
	cfg      MatchConfig
	metrics  observability.MatchMetrics
}

// NewMatchService creates a MatchService. embedder may be nil when no provider is configured,
// in which case text queries are rejected. metrics may be nil when metrics are disabled.
func NewMatchService(repo matchRepository, embedder EmbeddingClient, cfg MatchConfig, metrics observability.MatchMetrics) *MatchService {
	if cfg.Mode == "" {
		cfg.Mode = config.MatchModeStore
	}

	return &MatchService{repo: repo, embedder: embedder, cfg: cfg, metrics: metrics}
}

// Match resolves the request's vector, from the body or by embedding its text, and returns the
// ideas that clear the threshold. An empty Data slice means nothing was close enough.
func (s *MatchService) Match(ctx context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error) {
	hasEmbedding, hasText := len(req.Embedding) > 0, req.Text != nil
	if hasEmbedding == hasText {
		return nil, huberrors.NewValidationError("embedding", "exactly one of embedding and text is required")
	}

	vector := req.Embedding
	if hasText {
		var err error

		vector, err = s.Embed(ctx, *req.Text)
		if err != nil {
			if errors.Is(err, huberrors.ErrUnavailable) {
				s.record(ctx, string(models.MatchStatusUnavailable))
			}

			return nil, err
		}
	} else if err := vectors.Validate(vector, s.cfg.Dimensions); err != nil {
		return nil, huberrors.NewValidationError("embedding", err.Error())
	}

	q := matcher.Query{
		Vector:        vector,
		ExcludeAuthor: req.ExcludeAuthor,
		Threshold:     s.cfg.Threshold,
		Limit:         s.cfg.Limit,
	}
	if req.Threshold != nil {
		q.Threshold = *req.Threshold
	}

	if req.Limit != nil {
		q.Limit = *req.Limit
	}

	matches, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}

	return &models.MatchIdeasResponse{Data: matches, Threshold: q.Threshold}, nil
}

// Embed computes the embedding of text with the configured provider. A provider answer of the
// wrong dimension or a zero vector is reported as an UnavailableError, like a provider failure.
func (s *MatchService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, huberrors.NewValidationError("text", "no embedding provider is configured; send an embedding")
	}

	vector, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, asEmbeddingUnavailable(err)
	}

	if err := vectors.Validate(vector, s.cfg.Dimensions); err != nil {
		return nil, huberrors.NewUnavailableError(embeddingDependency, false, err)
	}

	return vector, nil
}

// FindDefault matches vector with the configured threshold and limit.
func (s *MatchService) FindDefault(ctx context.Context, vector []float32, excludeAuthor string) ([]models.IdeaMatch, error) {
	return s.Find(ctx, matcher.Query{
		Vector:        vector,
		ExcludeAuthor: excludeAuthor,
		Threshold:     s.cfg.Threshold,
		Limit:         s.cfg.Limit,
	})
}

// Find runs q in the configured mode.
func (s *MatchService) Find(ctx context.Context, q matcher.Query) ([]models.IdeaMatch, error) {
	if err := q.Validate(); err != nil {
		return nil, huberrors.NewValidationError("query", err.Error())
	}

	var (
		matches []models.IdeaMatch
		err     error
	)

	if s.cfg.Mode == config.MatchModeLocal {
		matches, err = s.findLocal(ctx, q)
	} else {
		matches, err = s.repo.MatchIdeas(ctx, q.Vector, q.ExcludeAuthor, q.Threshold, q.Limit)
	}

	if err != nil {
		s.record(ctx, "failed")

		return nil, fmt.Errorf("match ideas: %w", err)
	}

	if len(matches) == 0 {
		s.record(ctx, string(models.MatchStatusNoMatch))
	} else {
		s.record(ctx, string(models.MatchStatusMatched))
	}

	if s.metrics != nil {
		for _, m := range matches {
			s.metrics.RecordScore(ctx, m.Score)
		}
	}

	return matches, nil
}

func (s *MatchService) findLocal(ctx context.Context, q matcher.Query) ([]models.IdeaMatch, error) {
	ideas, err := s.repo.ListEmbedded(ctx, q.ExcludeAuthor)
	if err != nil {
		return nil, err
	}

	candidates := make([]matcher.Candidate, len(ideas))
	byID := make(map[int64]*models.Idea, len(ideas))

	for i := range ideas {
		idea := &ideas[i]
		candidates[i] = matcher.Candidate{ID: idea.ID, Author: idea.Author, Content: idea.Content, Vector: idea.Embedding}
		byID[idea.ID] = idea
	}

	found := matcher.Find(q, candidates)
	matches := make([]models.IdeaMatch, len(found))

	for i, m := range found {
		matches[i] = models.IdeaMatch{ID: m.ID, Author: m.Author, Title: byID[m.ID].Title, Content: m.Content, Score: m.Score}
	}

	return matches, nil
}

func (s *MatchService) record(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordMatch(ctx, s.cfg.Mode, outcome)
	}
}

// asEmbeddingUnavailable passes through UnavailableErrors and cancellations and wraps anything else.
func asEmbeddingUnavailable(err error) error {
	if errors.Is(err, huberrors.ErrUnavailable) || errors.Is(err, context.Canceled) {
		return err
	}

	return huberrors.NewUnavailableError(embeddingDependency, false, err)
}
