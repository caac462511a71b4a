package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ideaspark/hub/internal/api/response"
	"github.com/ideaspark/hub/internal/api/validation"
	"github.com/ideaspark/hub/internal/models"
)

// MatchService defines the interface for similarity queries.
type MatchService interface {
	Match(ctx context.Context, req *models.MatchIdeasRequest) (*models.MatchIdeasResponse, error)
	Embed(ctx context.Context, text string) ([]float32, error)
}

// MatchHandler handles similarity queries against the stored ideas and raw embedding requests.
type MatchHandler struct {
	service MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(service MatchService) *MatchHandler {
	return &MatchHandler{service: service}
}

// Match handles POST /v1/ideas/match
// @Summary Find ideas similar to an embedding or a text
// @Description Exactly one of embedding and text is required. Ideas by exclude_author are never returned.
// @Tags Match
// @Accept json
// @Produce json
// @Param request body MatchIdeasRequest true "Similarity query"
// @Success 200 {object} MatchIdeasResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 502 {object} ProblemDetails "Embedding provider failed"
// @Failure 503 {object} ProblemDetails "Embedding provider temporarily unavailable"
// @Security BearerAuth
// @Router /v1/ideas/match [post]
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req models.MatchIdeasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.Match(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Embed handles POST /v1/embed
// @Summary Compute the embedding of a text
// @Description Returns the configured provider's embedding without storing anything.
// @Tags Match
// @Accept json
// @Produce json
// @Param request body EmbedRequest true "Text to embed"
// @Success 200 {object} EmbedResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 502 {object} ProblemDetails "Embedding provider failed"
// @Failure 503 {object} ProblemDetails "Embedding provider temporarily unavailable"
// @Security BearerAuth
// @Router /v1/embed [post]
func (h *MatchHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req models.EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	embedding, err := h.service.Embed(r.Context(), req.Text)
	if err != nil {
		respondServiceError(w, r, err, "Not found")
		return
	}

	response.RespondJSON(w, http.StatusOK, models.EmbedResponse{Embedding: embedding, Dimensions: len(embedding)})
}
