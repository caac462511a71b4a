package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ideaspark/hub/internal/api/response"
	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/projection"
)

// statusClientClosedRequest is logged when the caller hung up before the response was ready.
const statusClientClosedRequest = 499

// respondServiceError maps service errors to problem responses. notFound is the detail
// sent for huberrors.ErrNotFound.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	var unavailable *huberrors.UnavailableError

	switch {
	case errors.Is(err, huberrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrNotFound):
		response.RespondStatus(w, http.StatusNotFound, notFound)
	case errors.Is(err, huberrors.ErrLimitExceeded):
		response.RespondError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", err.Error())
	case errors.As(err, &unavailable):
		slog.WarnContext(r.Context(), "upstream unavailable",
			"dependency", unavailable.Dependency, "temporary", unavailable.Temporary, "error", err)

		if unavailable.Temporary {
			w.Header().Set("Retry-After", "30")
			response.RespondStatus(w, http.StatusServiceUnavailable, unavailable.Error())

			return
		}

		response.RespondStatus(w, http.StatusBadGateway, unavailable.Error())
	case errors.Is(err, projection.ErrProjectionFailed):
		slog.ErrorContext(r.Context(), "projection failed", "error", err)
		response.RespondError(w, http.StatusInternalServerError, "Projection Failed", err.Error())
	case errors.Is(err, context.Canceled):
		slog.DebugContext(r.Context(), "request cancelled", "error", err)
		response.RespondError(w, statusClientClosedRequest, "Client Closed Request", "request cancelled")
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.RespondStatus(w, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
