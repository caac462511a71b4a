package observability

import "testing"

func TestNormalizeEventType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"known idea.created", "idea.created", "idea.created"},
		{"known idea.imported", "idea.imported", "idea.imported"},
		{"known idea.embedded", "idea.embedded", "idea.embedded"},
		{"known idea.deleted", "idea.deleted", "idea.deleted"},
		{"unknown empty", "", "unknown"},
		{"unknown random", "some.other.event", "unknown"},
		{"unknown typo", "idea.creatd", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeEventType(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeEventType(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeReason(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"drop reason", "dimension_mismatch", AllowedDropReasons, "dimension_mismatch"},
		{"unknown drop reason", "too_long", AllowedDropReasons, "other"},
		{"layout status", "insufficient_data", AllowedLayoutStatuses, "insufficient_data"},
		{"match outcome", "no_match", AllowedMatchOutcomes, "no_match"},
		{"match outcome from another set", "enqueue_failed", AllowedMatchOutcomes, "other"},
		{"breaker state", "half-open", AllowedBreakerStates, "half-open"},
		{"nil allowed set", "anything", nil, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeReason(tt.input, tt.allowed)
			if got != tt.expected {
				t.Errorf("NormalizeReason(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeCacheName(t *testing.T) {
	if got := NormalizeCacheName("embedding_query"); got != "embedding_query" {
		t.Errorf("NormalizeCacheName(embedding_query) = %q", got)
	}

	if got := NormalizeCacheName("webhook_list"); got != "other" {
		t.Errorf("NormalizeCacheName(webhook_list) = %q, want other", got)
	}
}

func TestAllowedEmbeddingOutcomeStatus(t *testing.T) {
	for _, s := range []string{"success", "retry", "skipped", "failed_final"} {
		if !AllowedEmbeddingOutcomeStatus(s) {
			t.Errorf("AllowedEmbeddingOutcomeStatus(%q) = false", s)
		}
	}

	if AllowedEmbeddingOutcomeStatus("exploded") {
		t.Error("AllowedEmbeddingOutcomeStatus(exploded) = true")
	}
}
