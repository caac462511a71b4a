package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ideaspark/hub/internal/datatypes"
	"github.com/ideaspark/hub/internal/models"
)

type mockEnqueuer struct {
	ids       []int64
	duplicate map[int64]bool
	err       error
}

func (m *mockEnqueuer) EnqueueEmbedding(_ context.Context, ideaID int64) (bool, error) {
	m.ids = append(m.ids, ideaID)
	if m.err != nil {
		return false, m.err
	}

	return !m.duplicate[ideaID], nil
}

type mockEmbeddingMetrics struct {
	enqueued        int64
	enqueueFailures int
	breakerStates   []string
}

func (m *mockEmbeddingMetrics) RecordJobsEnqueued(_ context.Context, count int64) { m.enqueued += count }
func (m *mockEmbeddingMetrics) RecordEnqueueFailure(context.Context)              { m.enqueueFailures++ }
func (m *mockEmbeddingMetrics) RecordJob(context.Context, string, time.Duration)  {}
func (m *mockEmbeddingMetrics) RecordWorkerError(context.Context, string)         {}
func (m *mockEmbeddingMetrics) RecordBreakerStateChange(_ context.Context, state string) {
	m.breakerStates = append(m.breakerStates, state)
}

func newEvent(eventType datatypes.EventType, data any) Event {
	return Event{ID: uuid.Must(uuid.NewV7()), Type: eventType, Data: data}
}

func TestEmbeddingProvider_PublishEvent_IdeaCreated_withoutEmbedding_enqueues(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	metrics := &mockEmbeddingMetrics{}
	p := NewEmbeddingProvider(enqueuer, metrics)

	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaCreated, &models.Idea{ID: 3}))

	assert.Equal(t, []int64{3}, enqueuer.ids)
	assert.Equal(t, int64(1), metrics.enqueued)
}

func TestEmbeddingProvider_PublishEvent_IdeaCreated_withEmbedding_skips(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	p := NewEmbeddingProvider(enqueuer, nil)

	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaCreated, &models.Idea{ID: 3, HasEmbedding: true}))

	assert.Empty(t, enqueuer.ids)
}

func TestEmbeddingProvider_PublishEvent_IdeaImported_enqueuesMissingOnly(t *testing.T) {
	enqueuer := &mockEnqueuer{duplicate: map[int64]bool{4: true}}
	metrics := &mockEmbeddingMetrics{}
	p := NewEmbeddingProvider(enqueuer, metrics)

	ideas := []models.Idea{{ID: 1}, {ID: 2, HasEmbedding: true}, {ID: 4}}
	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaImported, ideas))

	assert.Equal(t, []int64{1, 4}, enqueuer.ids)
	assert.Equal(t, int64(1), metrics.enqueued, "duplicates are not counted")
}

func TestEmbeddingProvider_PublishEvent_otherEvents_ignored(t *testing.T) {
	enqueuer := &mockEnqueuer{}
	p := NewEmbeddingProvider(enqueuer, nil)

	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaEmbedded, int64(1)))
	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaDeleted, int64(1)))
	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaCreated, "not an idea"))

	assert.Empty(t, enqueuer.ids)
}

func TestEmbeddingProvider_PublishEvent_enqueueError_recordsMetric(t *testing.T) {
	enqueuer := &mockEnqueuer{err: errors.New("insert failed")}
	metrics := &mockEmbeddingMetrics{}
	p := NewEmbeddingProvider(enqueuer, metrics)

	p.PublishEvent(context.Background(), newEvent(datatypes.IdeaCreated, &models.Idea{ID: 9}))

	assert.Equal(t, 1, metrics.enqueueFailures)
	assert.Equal(t, int64(0), metrics.enqueued)
}
