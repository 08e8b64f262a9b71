// Package events defines the events lfsdesk pushes to connected clients.
package events

import (
	"encoding/json"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Repository events
	EventTypeRepositorySelected EventType = "repository_selected"
	EventTypeRepositoryChanged  EventType = "repository_changed" // .gitattributes touched; clients should re-list

	// Lock events
	EventTypeLocksRefreshed EventType = "locks_refreshed"
	EventTypeLockAcquired   EventType = "lock_acquired"
	EventTypeLockReleased   EventType = "lock_released"

	// Dispatcher echo
	EventTypeEcho EventType = "echo"
)

// Event is the base interface for all events.
type Event interface {
	// Type returns the event type.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time

	// ToJSON serializes the event to JSON.
	ToJSON() ([]byte, error)

	// GetRepository returns the repository the event belongs to (may be empty).
	GetRepository() string
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType  EventType   `json:"event"`
	EventTime  time.Time   `json:"timestamp"`
	Repository string      `json:"repository,omitempty"`
	Payload    interface{} `json:"payload"`
}

// GetRepository returns the repository path.
func (e *BaseEvent) GetRepository() string {
	return e.Repository
}

// Type returns the event type.
func (e *BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e *BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// ToJSON serializes the event to JSON.
func (e *BaseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewEvent creates a new base event with the given type and payload.
func NewEvent(eventType EventType, payload interface{}) *BaseEvent {
	return &BaseEvent{
		EventType: eventType,
		EventTime: time.Now().UTC(),
		Payload:   payload,
	}
}

// NewRepositoryEvent creates an event scoped to a repository.
func NewRepositoryEvent(eventType EventType, repo string, payload interface{}) *BaseEvent {
	e := NewEvent(eventType, payload)
	e.Repository = repo
	return e
}
