// Package repository provides PostgreSQL data access for ideas and their embeddings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/models"
)

// errEmbeddingScanInvalidType is returned when Scan receives a type other than []byte.
var errEmbeddingScanInvalidType = errors.New("embedding: expected []byte")

// nullableEmbedding scans a vector column that may be NULL without panicking (pgvector.Vector.Scan panics on empty/NULL).
type nullableEmbedding []float32

func (n *nullableEmbedding) Scan(src any) error {
	if src == nil {
		*n = nil

		return nil
	}

	buf, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("%w: got %T", errEmbeddingScanInvalidType, src)
	}

	if len(buf) == 0 {
		*n = nil

		return nil
	}

	var vec pgvector.Vector

	if err := vec.DecodeBinary(buf); err != nil {
		return fmt.Errorf("embedding decode: %w", err)
	}

	*n = vec.Slice()

	return nil
}

// vectorParam returns a query argument for an optional embedding; nil stores NULL.
func vectorParam(embedding []float32) any {
	if embedding == nil {
		return nil
	}

	return pgvector.NewVector(embedding)
}

const ideaColumns = `id, author, title, content, created_at, is_public, embedding IS NOT NULL`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(row rowScanner, extra ...any) (models.Idea, error) {
	var idea models.Idea

	dest := append([]any{
		&idea.ID, &idea.Author, &idea.Title, &idea.Content, &idea.CreatedAt, &idea.IsPublic, &idea.HasEmbedding,
	}, extra...)

	err := row.Scan(dest...)

	return idea, err
}

// IdeasRepository handles data access for ideas.
type IdeasRepository struct {
	db *pgxpool.Pool
}

// NewIdeasRepository creates a new ideas repository.
func NewIdeasRepository(db *pgxpool.Pool) *IdeasRepository {
	return &IdeasRepository{db: db}
}

const insertIdeaQuery = `
	INSERT INTO ideas (author, title, content, is_public, embedding)
	VALUES ($1, $2, $3, COALESCE($4, TRUE), $5)
	RETURNING ` + ideaColumns

// Create inserts a new idea. A nil IsPublic stores TRUE; a nil Embedding stores NULL.
func (r *IdeasRepository) Create(ctx context.Context, req *models.CreateIdeaRequest) (*models.Idea, error) {
	idea, err := scanIdea(r.db.QueryRow(ctx, insertIdeaQuery,
		req.Author, req.Title, req.Content, req.IsPublic, vectorParam(req.Embedding),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create idea: %w", err)
	}

	idea.Embedding = req.Embedding

	return &idea, nil
}

// CreateMany inserts all ideas in one transaction; either every idea is stored or none is.
func (r *IdeasRepository) CreateMany(ctx context.Context, reqs []models.CreateIdeaRequest) ([]models.Idea, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range reqs {
		req := &reqs[i]
		batch.Queue(insertIdeaQuery, req.Author, req.Title, req.Content, req.IsPublic, vectorParam(req.Embedding))
	}

	results := tx.SendBatch(ctx, batch)

	ideas := make([]models.Idea, 0, len(reqs))

	for i := range reqs {
		idea, err := scanIdea(results.QueryRow())
		if err != nil {
			_ = results.Close()

			return nil, fmt.Errorf("failed to import idea %d: %w", i, err)
		}

		idea.Embedding = reqs[i].Embedding
		ideas = append(ideas, idea)
	}

	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to close import batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return ideas, nil
}

// GetByID retrieves a single idea, including its embedding when present.
func (r *IdeasRepository) GetByID(ctx context.Context, id int64) (*models.Idea, error) {
	var emb nullableEmbedding

	idea, err := scanIdea(r.db.QueryRow(ctx,
		`SELECT `+ideaColumns+`, embedding FROM ideas WHERE id = $1`, id,
	), &emb)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("idea", "idea not found")
		}

		return nil, fmt.Errorf("failed to get idea: %w", err)
	}

	idea.Embedding = emb

	return &idea, nil
}

// buildFilterConditions builds WHERE clause conditions and arguments from filters.
// Returns the WHERE clause (including " WHERE " prefix if conditions exist) and the args slice.
func buildFilterConditions(filters *models.ListIdeasFilters) (whereClause string, args []any) {
	var conditions []string

	argCount := 1

	if filters.Author != nil {
		conditions = append(conditions, fmt.Sprintf("author = $%d", argCount))
		args = append(args, *filters.Author)
		argCount++
	}

	if filters.ExcludeAuthor != nil {
		conditions = append(conditions, fmt.Sprintf("author <> $%d", argCount))
		args = append(args, *filters.ExcludeAuthor)
	}

	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	return whereClause, args
}

// buildListQuery returns the feed query, newest first, with optional paging.
func buildListQuery(filters *models.ListIdeasFilters) (query string, args []any) {
	query = `SELECT ` + ideaColumns + ` FROM ideas`

	whereClause, args := buildFilterConditions(filters)
	query += whereClause
	argCount := len(args) + 1

	query += " ORDER BY created_at DESC, id DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)

		args = append(args, filters.Limit)
		argCount++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)

		args = append(args, filters.Offset)
	}

	return query, args
}

// List retrieves ideas with optional filters, newest first.
func (r *IdeasRepository) List(ctx context.Context, filters *models.ListIdeasFilters) ([]models.Idea, error) {
	query, args := buildListQuery(filters)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	defer rows.Close()

	ideas := []models.Idea{}

	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}

		ideas = append(ideas, idea)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ideas: %w", err)
	}

	return ideas, nil
}

// Count returns the total count of ideas matching the filters.
func (r *IdeasRepository) Count(ctx context.Context, filters *models.ListIdeasFilters) (int64, error) {
	query := `SELECT COUNT(*) FROM ideas`

	whereClause, args := buildFilterConditions(filters)
	query += whereClause

	var count int64

	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ideas: %w", err)
	}

	return count, nil
}

// layoutQuery reads the newest ideas, oldest first, with the embedding in pgvector text form
// ("[0.1,0.2,...]") so that unparsable or mismatched rows are reported by ingestion rather than
// failing the whole read. Rows without an embedding are included and reported as missing.
const layoutQuery = `
	SELECT id, author, content, embedding::text
	FROM (
		SELECT id, author, content, embedding, created_at
		FROM ideas
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	) newest
	ORDER BY created_at ASC, id ASC`

// ListForLayout returns up to limit of the newest ideas for projection.
func (r *IdeasRepository) ListForLayout(ctx context.Context, limit int) ([]models.EmbeddedIdea, error) {
	rows, err := r.db.Query(ctx, layoutQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas for layout: %w", err)
	}
	defer rows.Close()

	ideas := []models.EmbeddedIdea{}

	for rows.Next() {
		var idea models.EmbeddedIdea
		if err := rows.Scan(&idea.ID, &idea.Author, &idea.Content, &idea.EmbeddingText); err != nil {
			return nil, fmt.Errorf("failed to scan layout idea: %w", err)
		}

		ideas = append(ideas, idea)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating layout ideas: %w", err)
	}

	return ideas, nil
}

// ListEmbedded returns every idea with an embedding whose author is not excludeAuthor.
// It is the read snapshot for in-process matching.
func (r *IdeasRepository) ListEmbedded(ctx context.Context, excludeAuthor string) ([]models.Idea, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ideaColumns+`, embedding
		FROM ideas
		WHERE embedding IS NOT NULL AND author <> $1
		ORDER BY id`, excludeAuthor)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded ideas: %w", err)
	}
	defer rows.Close()

	ideas := []models.Idea{}

	for rows.Next() {
		var emb nullableEmbedding

		idea, err := scanIdea(rows, &emb)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedded idea: %w", err)
		}

		idea.Embedding = emb
		ideas = append(ideas, idea)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embedded ideas: %w", err)
	}

	return ideas, nil
}

// UpdateEmbedding sets the embedding vector for an idea. Pass nil to clear the embedding (set to NULL).
func (r *IdeasRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	result, err := r.db.Exec(ctx, `UPDATE ideas SET embedding = $1 WHERE id = $2`, vectorParam(embedding), id)
	if err != nil {
		return fmt.Errorf("failed to update idea embedding: %w", err)
	}

	if result.RowsAffected() == 0 {
		return huberrors.NewNotFoundError("idea", "idea not found")
	}

	return nil
}

// ListIDsMissingEmbedding returns up to limit IDs greater than afterID of ideas with non-empty
// content and a NULL embedding, in ascending order (keyset pagination for backfill).
func (r *IdeasRepository) ListIDsMissingEmbedding(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id FROM ideas
		WHERE embedding IS NULL
		  AND trim(content) != ''
		  AND id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids missing embedding: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan idea id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ids missing embedding: %w", err)
	}

	return ids, nil
}

// Delete removes an idea.
func (r *IdeasRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete idea: %w", err)
	}

	if result.RowsAffected() == 0 {
		return huberrors.NewNotFoundError("idea", "idea not found")
	}

	return nil
}

// matchQuery scores every embedded idea of another author by cosine similarity, clamped to at
// most 1. Rows of another dimension or with a zero vector get a NULL score inside CASE, so they
// are skipped without evaluating <=> on them. Ties on score are ordered by id.
const matchQuery = `
	SELECT id, author, title, content, score
	FROM (
		SELECT id, author, title, content,
			CASE
				WHEN vector_dims(embedding) = $2 AND vector_norm(embedding) > 0
				THEN LEAST(1.0, 1 - (embedding <=> $1))
			END AS score
		FROM ideas
		WHERE embedding IS NOT NULL AND author <> $3
	) scored
	WHERE score > $4
	ORDER BY score DESC, id ASC
	LIMIT $5`

// MatchIdeas returns at most limit ideas by authors other than excludeAuthor whose cosine
// similarity to vector is strictly greater than threshold, best first. The vector must be
// non-empty with a non-zero norm.
func (r *IdeasRepository) MatchIdeas(
	ctx context.Context, vector []float32, excludeAuthor string, threshold float64, limit int,
) ([]models.IdeaMatch, error) {
	rows, err := r.db.Query(ctx, matchQuery,
		pgvector.NewVector(vector), len(vector), excludeAuthor, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to match ideas: %w", err)
	}
	defer rows.Close()

	matches := []models.IdeaMatch{}

	for rows.Next() {
		var m models.IdeaMatch
		if err := rows.Scan(&m.ID, &m.Author, &m.Title, &m.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan idea match: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating idea matches: %w", err)
	}

	return matches, nil
}
