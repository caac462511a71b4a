package middleware

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"
)

// Numeric path segment such as an idea ID (/v1/ideas/42).
var idSegmentRegex = regexp.MustCompile(`/[0-9]+(/|$)`)

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter

	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging writes one access log line per request. It runs inside otelhttp so the
// request context already carries the span and request ID picked up by the log handler.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		level := slog.LevelInfo
		if rw.statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		slog.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", normalizeRoute(r.URL.Path),
			"status", rw.statusCode,
			"status_class", statusToClass(rw.statusCode),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// normalizeRoute replaces numeric path segments with {id} to bound cardinality.
func normalizeRoute(path string) string {
	return idSegmentRegex.ReplaceAllString(path, "/{id}$1")
}

// statusToClass maps HTTP status code to 1xx, 2xx, 4xx, 5xx.
func statusToClass(status int) string {
	if status >= 500 {
		return "5xx"
	}

	if status >= 400 {
		return "4xx"
	}

	if status >= 300 {
		return "3xx"
	}

	if status >= 200 {
		return "2xx"
	}

	if status >= 100 {
		return "1xx"
	}

	return "unknown"
}
