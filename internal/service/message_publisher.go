package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ideaspark/hub/internal/datatypes"
	"github.com/ideaspark/hub/internal/observability"
)

const (
	defaultEventChanBufferSize = 1024
	defaultPerEventTimeout     = 10 * time.Second
)

// Event represents an idea lifecycle event fanned out to the registered providers.
type Event struct {
	ID        uuid.UUID           // Unique event id (UUID v7, time-ordered)
	Type      datatypes.EventType // Event type enum (e.g., IdeaCreated, IdeaEmbedded)
	Timestamp int64               // Unix timestamp
	Data      any                 // *models.Idea, []models.Idea or the idea ID
}

// MessagePublisher defines the interface for publishing events.
type MessagePublisher interface {
	PublishEvent(ctx context.Context, eventType datatypes.EventType, data any)
}

// eventPublisher is the internal interface for providers that receive a full Event.
type eventPublisher interface {
	PublishEvent(ctx context.Context, event Event)
}

// MessagePublisherManager coordinates the event providers (embedding jobs, layout snapshot).
// Events go through a buffered channel; when it is full the event is dropped.
type MessagePublisherManager struct {
	eventChan       chan Event
	providers       []eventPublisher
	perEventTimeout time.Duration
	metrics         observability.EventMetrics
	wg              sync.WaitGroup
}

// NewMessagePublisherManager creates a manager and starts its worker. Non-positive sizes use
// the defaults. metrics may be nil when metrics are disabled.
func NewMessagePublisherManager(
	bufferSize int,
	perEventTimeout time.Duration,
	metrics observability.EventMetrics,
) *MessagePublisherManager {
	if bufferSize <= 0 {
		bufferSize = defaultEventChanBufferSize
	}

	if perEventTimeout <= 0 {
		perEventTimeout = defaultPerEventTimeout
	}

	m := &MessagePublisherManager{
		eventChan:       make(chan Event, bufferSize),
		providers:       make([]eventPublisher, 0),
		perEventTimeout: perEventTimeout,
		metrics:         metrics,
	}

	m.wg.Add(1)

	go m.startWorker()

	return m
}

// RegisterProvider registers an event provider.
// Must only be called during startup, before any events are published.
func (m *MessagePublisherManager) RegisterProvider(provider eventPublisher) {
	m.providers = append(m.providers, provider)
}

// PublishEvent enqueues an event for all registered providers without blocking.
func (m *MessagePublisherManager) PublishEvent(ctx context.Context, eventType datatypes.EventType, data any) {
	event := Event{
		ID:        uuid.Must(uuid.NewV7()),
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}

	select {
	case m.eventChan <- event:
		slog.Debug("Event published to channel", "event_id", event.ID, "event_type", event.Type)

		if m.metrics != nil {
			m.metrics.RecordEventPublished(ctx, event.Type.String())
		}
	default:
		slog.Warn("Event channel full, event dropped", "event_id", event.ID, "event_type", event.Type)

		if m.metrics != nil {
			m.metrics.RecordEventDiscarded(ctx, event.Type.String())
		}
	}

	if m.metrics != nil {
		m.metrics.SetChannelDepth(len(m.eventChan))
	}
}

// startWorker reads events until the channel is closed and fans each one out to every
// provider under a per-event timeout.
func (m *MessagePublisherManager) startWorker() {
	defer m.wg.Done()

	bgCtx := context.Background()

	for event := range m.eventChan {
		start := time.Now()
		ctx, cancel := context.WithTimeout(bgCtx, m.perEventTimeout)

		for _, provider := range m.providers {
			provider.PublishEvent(ctx, event)
		}

		cancel()

		if m.metrics != nil {
			m.metrics.RecordFanOutDuration(bgCtx, time.Since(start), event.Type.String())
			m.metrics.SetChannelDepth(len(m.eventChan))
		}
	}
}

// Shutdown stops accepting events and waits for the buffered ones to be processed.
// PublishEvent must not be called after Shutdown.
func (m *MessagePublisherManager) Shutdown() {
	close(m.eventChan)
	m.wg.Wait()
}
