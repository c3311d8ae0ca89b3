package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a content lifecycle transition
type EventType string

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventDeleted     EventType = "deleted"
	EventPublished   EventType = "published"
	EventUnpublished EventType = "unpublished"
)

// ContentEvent is emitted after every successful content mutation
type ContentEvent struct {
	ID         string     `json:"id"`
	Type       EventType  `json:"type"`
	Entity     string     `json:"entity"`
	ClientID   uuid.UUID  `json:"clientId"`
	ItemID     uuid.UUID  `json:"itemId"`
	ActorID    *uuid.UUID `json:"actorId,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// NewContentEvent stamps a fresh event id and time
func NewContentEvent(eventType EventType, entity string, clientID, itemID uuid.UUID, actorID *uuid.UUID) ContentEvent {
	return ContentEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Entity:     entity,
		ClientID:   clientID,
		ItemID:     itemID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher accepts events for asynchronous delivery. Publish must not block
// the request path.
type Publisher interface {
	Publish(event ContentEvent) error
}

// Noop discards events; used when no broker is configured
type Noop struct{}

func (Noop) Publish(ContentEvent) error { return nil }
