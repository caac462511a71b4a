package handlers

import (
	"context"
	"net/http"

	"github.com/ideaspark/hub/internal/api/response"
	"github.com/ideaspark/hub/internal/api/validation"
	"github.com/ideaspark/hub/internal/layout"
	"github.com/ideaspark/hub/internal/models"
)

// LayoutService computes a layout on demand.
type LayoutService interface {
	Compute(ctx context.Context, q *models.LayoutQuery) (layout.Layout, error)
}

// SnapshotSource returns the latest background layout.
type SnapshotSource interface {
	Snapshot() models.LayoutSnapshot
}

// LayoutHandler serves the 2-D constellation of ideas.
type LayoutHandler struct {
	service  LayoutService
	snapshot SnapshotSource
}

// NewLayoutHandler creates a new layout handler.
func NewLayoutHandler(service LayoutService, snapshot SnapshotSource) *LayoutHandler {
	return &LayoutHandler{service: service, snapshot: snapshot}
}

// Get handles GET /v1/layout
// @Summary Project the current ideas into the viewport
// @Description Runs the projection synchronously. Fewer than three usable embeddings return status insufficient_data with no points.
// @Tags Layout
// @Produce json
// @Param width query number false "Viewport width"
// @Param height query number false "Viewport height"
// @Param margin query number false "Margin as a fraction of each side (0 to 0.45)"
// @Param limit query int false "Newest ideas to include"
// @Success 200 {object} Layout
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Failure 500 {object} ProblemDetails "Projection failed"
// @Security BearerAuth
// @Router /v1/layout [get]
func (h *LayoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := &models.LayoutQuery{}
	if err := validation.ValidateAndDecodeQueryParams(r, q); err != nil {
		validation.RespondValidationError(w, err)
		return
	}

	out, err := h.service.Compute(r.Context(), q)
	if err != nil {
		respondServiceError(w, r, err, "Layout not found")
		return
	}

	response.RespondJSON(w, http.StatusOK, out)
}

// Snapshot handles GET /v1/layout/snapshot
// @Summary Latest background layout
// @Description Recomputed after ideas are created, imported, embedded or deleted. Status is pending until the first run completes.
// @Tags Layout
// @Produce json
// @Success 200 {object} LayoutSnapshot
// @Failure 401 {object} ProblemDetails "Unauthorized - Invalid or missing API key"
// @Security BearerAuth
// @Router /v1/layout/snapshot [get]
func (h *LayoutHandler) Snapshot(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, h.snapshot.Snapshot())
}
