package workers

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"

	"github.com/ideaspark/hub/internal/huberrors"
	"github.com/ideaspark/hub/internal/jobs"
	"github.com/ideaspark/hub/internal/models"
)

type mockIdeaService struct {
	idea   *models.Idea
	getErr error
	setErr error
	stored []float32
	sets   int
}

func (m *mockIdeaService) GetIdea(_ context.Context, _ int64) (*models.Idea, error) {
	return m.idea, m.getErr
}

func (m *mockIdeaService) SetIdeaEmbedding(_ context.Context, _ int64, embedding []float32) error {
	m.sets++
	m.stored = embedding

	return m.setErr
}

type mockEmbedder struct {
	vec   []float32
	err   error
	calls int
	input string
}

func (m *mockEmbedder) CreateEmbedding(_ context.Context, input string) ([]float32, error) {
	m.calls++
	m.input = input

	return m.vec, m.err
}

type recordingMetrics struct {
	outcomes []string
	reasons  []string
}

func (m *recordingMetrics) RecordJobsEnqueued(context.Context, int64) {}
func (m *recordingMetrics) RecordEnqueueFailure(context.Context)      {}
func (m *recordingMetrics) RecordJob(_ context.Context, outcome string, _ time.Duration) {
	m.outcomes = append(m.outcomes, outcome)
}
func (m *recordingMetrics) RecordWorkerError(_ context.Context, reason string) {
	m.reasons = append(m.reasons, reason)
}
func (m *recordingMetrics) RecordBreakerStateChange(context.Context, string) {}

func newJob(attempt, maxAttempts int) *river.Job[jobs.IdeaEmbeddingArgs] {
	return &river.Job[jobs.IdeaEmbeddingArgs]{
		JobRow: &rivertype.JobRow{Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   jobs.IdeaEmbeddingArgs{IdeaID: 7},
	}
}

func TestIdeaEmbeddingWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("stores embedding of the content", func(t *testing.T) {
		ideas := &mockIdeaService{idea: &models.Idea{ID: 7, Content: "solar kiosks"}}
		embedder := &mockEmbedder{vec: []float32{0.6, 0.8}}
		worker := NewIdeaEmbeddingWorker(ideas, embedder, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err != nil {
			t.Fatalf("Work() error = %v, want nil", err)
		}

		if embedder.input != "solar kiosks" {
			t.Errorf("embedded %q, want content", embedder.input)
		}

		if ideas.sets != 1 || len(ideas.stored) != 2 {
			t.Errorf("SetIdeaEmbedding calls = %d stored = %v", ideas.sets, ideas.stored)
		}
	})

	t.Run("returns nil when idea was deleted", func(t *testing.T) {
		ideas := &mockIdeaService{getErr: huberrors.NewNotFoundError("idea", "idea not found")}
		embedder := &mockEmbedder{}
		worker := NewIdeaEmbeddingWorker(ideas, embedder, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err != nil {
			t.Errorf("Work() error = %v, want nil (no retry)", err)
		}

		if embedder.calls != 0 {
			t.Errorf("provider called %d times, want 0", embedder.calls)
		}
	})

	t.Run("skips ideas that already have an embedding", func(t *testing.T) {
		ideas := &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x", HasEmbedding: true}}
		embedder := &mockEmbedder{}
		worker := NewIdeaEmbeddingWorker(ideas, embedder, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err != nil {
			t.Errorf("Work() error = %v, want nil", err)
		}

		if embedder.calls != 0 || ideas.sets != 0 {
			t.Errorf("provider calls = %d, sets = %d, want 0", embedder.calls, ideas.sets)
		}
	})

	t.Run("provider error is retried before the last attempt", func(t *testing.T) {
		ideas := &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}}
		embedder := &mockEmbedder{err: huberrors.NewUnavailableError("embedding provider", true, errors.New("circuit open"))}
		worker := NewIdeaEmbeddingWorker(ideas, embedder, 100, nil)

		err := worker.Work(ctx, newJob(1, 3))
		if !errors.Is(err, huberrors.ErrUnavailable) {
			t.Errorf("Work() error = %v, want unavailable error for retry", err)
		}
	})

	t.Run("provider error on last attempt returns nil", func(t *testing.T) {
		ideas := &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}}
		embedder := &mockEmbedder{err: errors.New("boom")}
		worker := NewIdeaEmbeddingWorker(ideas, embedder, 100, nil)

		if err := worker.Work(ctx, newJob(3, 3)); err != nil {
			t.Errorf("Work() error = %v, want nil on final attempt", err)
		}
	})

	t.Run("update failure is retried", func(t *testing.T) {
		ideas := &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}, setErr: errors.New("db down")}
		worker := NewIdeaEmbeddingWorker(ideas, &mockEmbedder{vec: []float32{1}}, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err == nil {
			t.Error("Work() error = nil, want error for retry")
		}
	})

	t.Run("invalid vector is not retried", func(t *testing.T) {
		ideas := &mockIdeaService{
			idea:   &models.Idea{ID: 7, Content: "x"},
			setErr: huberrors.NewValidationError("embedding", "embedding has zero norm"),
		}
		worker := NewIdeaEmbeddingWorker(ideas, &mockEmbedder{vec: []float32{0}}, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err != nil {
			t.Errorf("Work() error = %v, want nil", err)
		}
	})

	t.Run("idea deleted before store returns nil", func(t *testing.T) {
		ideas := &mockIdeaService{
			idea:   &models.Idea{ID: 7, Content: "x"},
			setErr: huberrors.NewNotFoundError("idea", "idea not found"),
		}
		worker := NewIdeaEmbeddingWorker(ideas, &mockEmbedder{vec: []float32{1}}, 100, nil)

		if err := worker.Work(ctx, newJob(1, 3)); err != nil {
			t.Errorf("Work() error = %v, want nil", err)
		}
	})
}

func TestIdeaEmbeddingWorker_Metrics(t *testing.T) {
	ctx := context.Background()
	providerErr := errors.New("upstream 500")

	tests := []struct {
		name         string
		ideas        *mockIdeaService
		embedder     *mockEmbedder
		attempt      int
		wantOutcomes []string
		wantReasons  []string
	}{
		{
			name:         "success",
			ideas:        &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}},
			embedder:     &mockEmbedder{vec: []float32{1, 0}},
			attempt:      1,
			wantOutcomes: []string{"success"},
		},
		{
			name:         "already embedded",
			ideas:        &mockIdeaService{idea: &models.Idea{ID: 7, HasEmbedding: true}},
			embedder:     &mockEmbedder{},
			attempt:      1,
			wantOutcomes: []string{"skipped"},
		},
		{
			name:         "provider failure retried",
			ideas:        &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}},
			embedder:     &mockEmbedder{err: providerErr},
			attempt:      1,
			wantOutcomes: []string{"retry"},
			wantReasons:  []string{"provider_failed"},
		},
		{
			name:         "provider failure on last attempt",
			ideas:        &mockIdeaService{idea: &models.Idea{ID: 7, Content: "x"}},
			embedder:     &mockEmbedder{err: providerErr},
			attempt:      3,
			wantOutcomes: []string{"failed_final"},
			wantReasons:  []string{"provider_failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := &recordingMetrics{}
			worker := NewIdeaEmbeddingWorker(tt.ideas, tt.embedder, 100, metrics)

			_ = worker.Work(ctx, newJob(tt.attempt, 3))

			if !slices.Equal(metrics.outcomes, tt.wantOutcomes) {
				t.Errorf("outcomes = %v, want %v", metrics.outcomes, tt.wantOutcomes)
			}

			if !slices.Equal(metrics.reasons, tt.wantReasons) {
				t.Errorf("reasons = %v, want %v", metrics.reasons, tt.wantReasons)
			}
		})
	}
}
