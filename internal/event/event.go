package event

import "time"

// EventType identifies the kind of lifecycle event.
type EventType string

const (
	// Memory lifecycle
	MemoryAdded     EventType = "memory.added"
	MemoryAccessed  EventType = "memory.accessed"
	MemoryUpdated   EventType = "memory.updated"
	MemoryDeleted   EventType = "memory.deleted"
	MemoryDuplicate EventType = "memory.duplicate"

	// Transcript lifecycle
	SessionStarted EventType = "session.started"
	SessionEnded   EventType = "session.ended"
	TurnAppended   EventType = "turn.appended"
	TurnDeleted    EventType = "turn.deleted"
)

// Event carries data about a lifecycle occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}
