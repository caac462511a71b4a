// Package response writes JSON bodies and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const problemContentType = "application/problem+json"

// ErrorDetail points at one offending field of a rejected request.
type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// ProblemDetails is the RFC 7807 body sent with every 4xx and 5xx.
type ProblemDetails struct {
	Type     string        `json:"type,omitempty"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// RespondProblem writes p with its own status. An empty Type becomes about:blank and an
// empty Title the standard status text.
func RespondProblem(w http.ResponseWriter, p ProblemDetails) {
	if p.Type == "" {
		p.Type = "about:blank"
	}

	if p.Title == "" {
		p.Title = http.StatusText(p.Status)
	}

	write(w, p.Status, problemContentType, p)
}

// RespondError writes a problem with an explicit title.
func RespondError(w http.ResponseWriter, statusCode int, title string, detail string) {
	RespondProblem(w, ProblemDetails{Title: title, Status: statusCode, Detail: detail})
}

// RespondStatus writes a problem titled with the standard text for statusCode.
func RespondStatus(w http.ResponseWriter, statusCode int, detail string) {
	RespondProblem(w, ProblemDetails{Status: statusCode, Detail: detail})
}

func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondStatus(w, http.StatusBadRequest, detail)
}

// RespondJSON writes data as the whole body, without an envelope.
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	write(w, statusCode, "application/json", data)
}

func write(w http.ResponseWriter, statusCode int, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response body", "status", statusCode, "error", err)
	}
}
