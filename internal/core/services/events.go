package services

import (
	"time"

	"foodlink/internal/core/domain"

	"github.com/google/uuid"
)

// EventPublisher receives lifecycle events after the transition committed.
// Implementations must not block the caller and must swallow their own
// delivery failures.
type EventPublisher interface {
	Publish(event domain.Event)
}

// MultiPublisher fans one event out to several publishers
type MultiPublisher []EventPublisher

// Publish sends event to every publisher in order
func (m MultiPublisher) Publish(event domain.Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(event)
		}
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.Event) {}

// NopPublisher discards all events
var NopPublisher EventPublisher = nopPublisher{}

// newEvent stamps an event with an id and time
func newEvent(eventType domain.EventType, now time.Time) domain.Event {
	return domain.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: now,
	}
}
