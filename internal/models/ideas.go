package models

import "time"

// Idea is a short text posted by an author, with its embedding once computed.
type Idea struct {
	ID           int64     `json:"id"`
	Author       string    `json:"author"`
	Title        *string   `json:"title,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	IsPublic     bool      `json:"is_public"`
	HasEmbedding bool      `json:"has_embedding"`
	Embedding    []float32 `json:"-"`
}

// EmbeddedIdea is an idea row whose embedding column was read as pgvector text,
// left unparsed for the ingestion step.
type EmbeddedIdea struct {
	ID            int64
	Author        string
	Content       string
	EmbeddingText *string
}

// CreateIdeaRequest is the body of POST /v1/ideas and one element of an import.
// Embedding is optional; when absent the service computes it from Content.
type CreateIdeaRequest struct {
	Author    string    `json:"author" validate:"required,min=1,max=255,no_null_bytes"`
	Title     *string   `json:"title,omitempty" validate:"omitempty,max=255,no_null_bytes"`
	Content   string    `json:"content" validate:"required,min=1,max=5000,no_null_bytes"`
	IsPublic  *bool     `json:"is_public,omitempty"`
	Embedding []float32 `json:"embedding,omitempty" validate:"omitempty,min=1,max=4096"`
}

// ImportIdeasRequest is the body of POST /v1/ideas/import.
type ImportIdeasRequest struct {
	Ideas []CreateIdeaRequest `json:"ideas" validate:"required,min=1,max=100,dive"`
}

// ImportIdeasResponse lists the ideas created by an import.
type ImportIdeasResponse struct {
	Data  []Idea `json:"data"`
	Count int    `json:"count"`
}

// ListIdeasFilters are the query parameters of GET /v1/ideas.
type ListIdeasFilters struct {
	Author        *string `form:"author" validate:"omitempty,no_null_bytes"`
	ExcludeAuthor *string `form:"exclude_author" validate:"omitempty,no_null_bytes"`
	Limit         int     `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset        int     `form:"offset" validate:"omitempty,min=0,max=2147483647"`
}

// ListIdeasResponse is a page of ideas, newest first.
type ListIdeasResponse struct {
	Data   []Idea `json:"data"`
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// MatchStatus tells the poster whether a similar idea was found.
type MatchStatus string

// Match statuses returned with a newly created idea.
const (
	MatchStatusMatched     MatchStatus = "matched"
	MatchStatusNoMatch     MatchStatus = "no_match"
	MatchStatusSkipped     MatchStatus = "skipped"
	MatchStatusUnavailable MatchStatus = "unavailable"
)

// IdeaMatch is an existing idea similar to a query, with cosine similarity in [0,1].
type IdeaMatch struct {
	ID      int64   `json:"id"`
	Author  string  `json:"author"`
	Title   *string `json:"title,omitempty"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// CreateIdeaResponse is the idea as stored plus the one-shot similarity alert.
type CreateIdeaResponse struct {
	Idea        Idea        `json:"idea"`
	MatchStatus MatchStatus `json:"match_status"`
	Matches     []IdeaMatch `json:"matches"`
}

// MatchIdeasRequest is the body of POST /v1/ideas/match. Exactly one of Embedding and
// Text is required; Threshold and Limit fall back to configuration.
type MatchIdeasRequest struct {
	Embedding     []float32 `json:"embedding,omitempty" validate:"omitempty,min=1,max=4096"`
	Text          *string   `json:"text,omitempty" validate:"omitempty,min=1,max=5000,no_null_bytes"`
	ExcludeAuthor string    `json:"exclude_author" validate:"max=255,no_null_bytes"`
	Threshold     *float64  `json:"threshold,omitempty" validate:"omitempty,min=0,max=1"`
	Limit         *int      `json:"limit,omitempty" validate:"omitempty,min=1,max=50"`
}

// MatchIdeasResponse is the result of a similarity query; Data is empty when nothing clears the threshold.
type MatchIdeasResponse struct {
	Data      []IdeaMatch `json:"data"`
	Threshold float64     `json:"threshold"`
}

// EmbedRequest is the body of POST /v1/embed.
type EmbedRequest struct {
	Text string `json:"text" validate:"required,max=5000,no_null_bytes"`
}

// EmbedResponse carries the provider embedding of EmbedRequest.Text.
type EmbedResponse struct {
	Embedding  []float32 `json:"embedding"`
	Dimensions int       `json:"dimensions"`
}

// BackfillResponse reports how many embedding jobs were enqueued.
type BackfillResponse struct {
	Enqueued int `json:"enqueued"`
}
