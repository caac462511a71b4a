package observability

import (
	"strings"
	"testing"

	"github.com/ideaspark/hub/internal/config"
)

func TestParseTraceIDRatio(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"", 1.0},
		{"0.25", 0.25},
		{"0", 0},
		{"1", 1},
		{"1.5", 1.0},
		{"-0.1", 1.0},
		{"half", 1.0},
	}
	for _, tt := range tests {
		if got := parseTraceIDRatio(tt.input); got != tt.want {
			t.Errorf("parseTraceIDRatio(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSamplerFromEnv(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		want    string
	}{
		{"always_on", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		{"parentbased_traceidratio", "0.1", "ParentBased{root:TraceIDRatioBased{0.1}"},
		{"parentbased_always_off", "", "ParentBased{root:AlwaysOffSampler"},
		{"", "", "ParentBased{root:AlwaysOnSampler"},
		{"bogus", "", "ParentBased{root:AlwaysOnSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			got := samplerFromEnv(tt.sampler, tt.arg).Description()
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("samplerFromEnv(%q, %q).Description() = %q, want prefix %q", tt.sampler, tt.arg, got, tt.want)
			}
		})
	}
}

func TestNewTracerProvider_Stdout(t *testing.T) {
	tp, err := NewTracerProvider(&config.Config{OtelTracesExporter: TracesExporterStdout})
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}
	if tp == nil {
		t.Fatal("expected a tracer provider for the stdout exporter")
	}

	if err := ShutdownTracerProvider(t.Context(), tp); err != nil {
		t.Errorf("ShutdownTracerProvider: %v", err)
	}
}
