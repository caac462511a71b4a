// Package observability provides OpenTelemetry metrics and tracing for the idea hub.
package observability

import (
	"github.com/ideaspark/hub/internal/datatypes"
)

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameEvents            = "hub_events_total"
	MetricNameFanOutDuration    = "hub_message_publisher_fan_out_duration_seconds"
	MetricNameEventChannelDepth = "hub_event_channel_depth"
	MetricNameRiverQueueDepth   = "hub_river_queue_depth"

	MetricNameEmbeddingJobsEnqueued    = "hub_embedding_jobs_enqueued_total"
	MetricNameEmbeddingEnqueueFailures = "hub_embedding_enqueue_failures_total"
	MetricNameEmbeddingJobs            = "hub_embedding_jobs_total"
	MetricNameEmbeddingWorkerErrors    = "hub_embedding_worker_errors_total"
	MetricNameEmbeddingDuration        = "hub_embedding_duration_seconds"
	MetricNameEmbeddingBreakerChanges  = "hub_embedding_breaker_state_changes_total"

	MetricNameCacheLookups = "hub_cache_lookups_total"

	MetricNameRequestBodyTooLarge  = "hub_request_body_too_large_total"
	MetricNameRequestsUnauthorized = "hub_requests_unauthorized_total"

	MetricNameLayoutRuns         = "hub_layout_runs_total"
	MetricNameLayoutDuration     = "hub_layout_duration_seconds"
	MetricNameLayoutPoints       = "hub_layout_points"
	MetricNameLayoutDropped      = "hub_layout_dropped_records_total"
	MetricNameLayoutStaleResults = "hub_layout_stale_results_total"

	MetricNameMatchRequests = "hub_match_requests_total"
	MetricNameMatchScore    = "hub_match_score"
)

// Attribute keys.
const (
	AttrEventType = "event_type"
	AttrReason    = "reason"
	AttrStatus    = "status"
	AttrMode      = "mode"
	AttrState     = "state"
	AttrCache     = "cache"
	AttrResult    = "result"
)

// AllowedEventTypes returns event type strings allowed for metric attributes (bounded cardinality).
func AllowedEventTypes() []string {
	return datatypes.GetAllEventTypes()
}

// AllowedEmbeddingWorkerReason for hub_embedding_worker_errors_total.
var AllowedEmbeddingWorkerReason = map[string]bool{
	"get_idea_failed":    true,
	"invalid_vector":     true,
	"panic":              true,
	"provider_failed":    true,
	"provider_throttled": true,
	"update_failed":      true,
}

// allowedEmbeddingOutcomes for hub_embedding_jobs_total and hub_embedding_duration_seconds.
var allowedEmbeddingOutcomes = map[string]bool{
	"success":      true,
	"retry":        true,
	"skipped":      true,
	"failed_final": true,
}

// AllowedEmbeddingOutcomeStatus reports whether status is a known embedding job outcome.
func AllowedEmbeddingOutcomeStatus(status string) bool {
	return allowedEmbeddingOutcomes[status]
}

// AllowedBreakerStates for hub_embedding_breaker_state_changes_total.
var AllowedBreakerStates = map[string]bool{
	"closed":    true,
	"half-open": true,
	"open":      true,
}

// AllowedCacheNames for hub_cache_lookups_total.
var AllowedCacheNames = map[string]bool{
	"embedding_query": true,
}

// AllowedAuthFailures for hub_requests_unauthorized_total.
var AllowedAuthFailures = map[string]bool{
	"missing":   true,
	"malformed": true,
	"invalid":   true,
}

// AllowedLayoutStatuses for hub_layout_runs_total and hub_layout_duration_seconds.
var AllowedLayoutStatuses = map[string]bool{
	"ok":                true,
	"insufficient_data": true,
	"failed":            true,
	"cancelled":         true,
}

// AllowedDropReasons for hub_layout_dropped_records_total.
var AllowedDropReasons = map[string]bool{
	"missing":            true,
	"empty":              true,
	"malformed":          true,
	"non_finite":         true,
	"dimension_mismatch": true,
}

// AllowedMatchOutcomes for hub_match_requests_total.
var AllowedMatchOutcomes = map[string]bool{
	"matched":     true,
	"no_match":    true,
	"skipped":     true,
	"unavailable": true,
	"failed":      true,
}

// AllowedMatchModes for the mode attribute of hub_match_requests_total.
var AllowedMatchModes = map[string]bool{
	"store": true,
	"local": true,
}

// NormalizeEventType returns eventType if allowed, otherwise "unknown".
func NormalizeEventType(eventType string) string {
	if datatypes.IsValidEventType(eventType) {
		return eventType
	}

	return "unknown"
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if it is a known cache, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
