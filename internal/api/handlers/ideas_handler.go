package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ideaspark/hub/internal/api/response"
	"github.com/ideaspark/hub/internal/api/validation"
	"github.com/ideaspark/hub/internal/models"
)

// IdeasService defines the interface for ideas business logic.
type IdeasService interface {
	CreateIdea(ctx context.Context, req *models.CreateIdeaRequest) (*models.CreateIdeaResponse, error)
	ImportIdeas(ctx context.Context, req *models.ImportIdeasRequest) (*models.ImportIdeasResponse, error)
	GetIdea(ctx context.Context, id int64) (*models.Idea, error)
	ListIdeas(ctx context.Context, filters *models.ListIdeasFilters) (*models.ListIdeasResponse, error)
	DeleteIdea(ctx context.Context, id int64) error
	BackfillEmbeddings(ctx context.Context) (*models.BackfillResponse, error)
}

// IdeasHandler handles HTTP requests for ideas.
type IdeasHandler struct {
	service IdeasService
}

// NewIdeasHandler creates a new ideas handler.
func NewIdeasHandler(service IdeasService) *IdeasHandler {
	return &IdeasHandler{service: service}
}

// Create handles POST /v1/ideas
// @Summary Post an idea
// @Description Stores the idea and reports the most similar idea by another author, if any
// @Tags Ideas
// @Accept json
// @Produce json
// @Param request body CreateIdeaRequest true "Idea to post"
// @Success 201 {object} CreateIdeaResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 502 {object} ProblemDetails "Embedding provider failed; nothing was stored"
// @Failure 503 {object} ProblemDetails "Embedding provider temporarily unavailable; nothing was stored"
// @Security BearerAuth
// @Router /v1/ideas [post]
func (h *IdeasHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	created, err := h.service.CreateIdea(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusCreated, created)
}

// Import handles POST /v1/ideas/import
// @Summary Import ideas in bulk
// @Description Stores up to 100 ideas in one transaction; ideas without an embedding are embedded in the background
// @Tags Ideas
// @Accept json
// @Produce json
// @Param request body ImportIdeasRequest true "Ideas to import"
// @Success 201 {object} ImportIdeasResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 413 {object} ProblemDetails "Too many ideas"
// @Security BearerAuth
// @Router /v1/ideas/import [post]
func (h *IdeasHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req models.ImportIdeasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")
		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	imported, err := h.service.ImportIdeas(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusCreated, imported)
}

// Get handles GET /v1/ideas/{id}
// @Summary Get an idea by ID
// @Tags Ideas
// @Produce json
// @Param id path int true "Idea ID"
// @Success 200 {object} Idea
// @Failure 400 {object} ProblemDetails "Invalid ID"
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} ProblemDetails "Idea not found"
// @Security BearerAuth
// @Router /v1/ideas/{id} [get]
func (h *IdeasHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIdeaID(w, r)
	if !ok {
		return
	}

	idea, err := h.service.GetIdea(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusOK, idea)
}

// List handles GET /v1/ideas
// @Summary List the idea feed
// @Description Newest first, optionally filtered by author
// @Tags Ideas
// @Produce json
// @Param author query string false "Only ideas by this author"
// @Param exclude_author query string false "Hide ideas by this author"
// @Param limit query int false "Number of results to return (max 1000)"
// @Param offset query int false "Number of results to skip"
// @Success 200 {object} ListIdeasResponse
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Security BearerAuth
// @Router /v1/ideas [get]
func (h *IdeasHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := &models.ListIdeasFilters{}
	if err := validation.ValidateAndDecodeQueryParams(r, filters); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	result, err := h.service.ListIdeas(r.Context(), filters)
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// Delete handles DELETE /v1/ideas/{id}
// @Summary Delete an idea
// @Tags Ideas
// @Param id path int true "Idea ID"
// @Success 204
// @Failure 400 {object} ProblemDetails "Invalid ID"
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 404 {object} ProblemDetails "Idea not found"
// @Security BearerAuth
// @Router /v1/ideas/{id} [delete]
func (h *IdeasHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIdeaID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteIdea(r.Context(), id); err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Backfill handles POST /v1/ideas/backfill-embeddings
// @Summary Enqueue embedding jobs for ideas stored without one
// @Tags Ideas
// @Produce json
// @Success 202 {object} BackfillResponse
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 502 {object} ProblemDetails "No embedding provider configured"
// @Security BearerAuth
// @Router /v1/ideas/backfill-embeddings [post]
func (h *IdeasHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.BackfillEmbeddings(r.Context())
	if err != nil {
		respondServiceError(w, r, err, "Idea not found")
		return
	}

	response.RespondJSON(w, http.StatusAccepted, result)
}

func parseIdeaID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		response.RespondBadRequest(w, "Idea ID is required")
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id < 1 {
		response.RespondBadRequest(w, "Invalid idea ID")
		return 0, false
	}

	return id, true
}
