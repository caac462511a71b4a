package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ideaspark/hub/internal/api/response"
)

// UnauthorizedRecorder records rejected requests by reason: missing, malformed or invalid.
type UnauthorizedRecorder interface {
	RecordUnauthorized(ctx context.Context, reason string)
}

// Auth returns middleware that requires "Authorization: Bearer <apiKey>" on every request.
// Keys are compared in constant time. recorder may be nil.
func Auth(apiKey string, recorder UnauthorizedRecorder) func(http.Handler) http.Handler {
	expected := []byte(apiKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason, detail string) {
				if recorder != nil {
					recorder.RecordUnauthorized(r.Context(), reason)
				}

				response.RespondStatus(w, http.StatusUnauthorized, detail)
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				reject("missing", "Missing Authorization header")
				return
			}

			// Expected format: "Bearer <api-key>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				reject("malformed", "Invalid Authorization header format. Expected: Bearer <api-key>")
				return
			}

			key := strings.TrimSpace(parts[1])
			if key == "" {
				reject("malformed", "API key is empty")
				return
			}

			if subtle.ConstantTimeCompare([]byte(key), expected) != 1 {
				reject("invalid", "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
