package audit

import "time"

// EventType classifies what happened.
type EventType string

const (
	EventPlayerCommand       EventType = "PLAYER_COMMAND"
	EventPlayerCommandFailed EventType = "PLAYER_COMMAND_FAILED"
	EventPollFailed          EventType = "POLL_FAILED"
	EventPollRecovered       EventType = "POLL_RECOVERED"
	EventMediaItemAdded      EventType = "MEDIA_ITEM_ADDED"
	EventMediaItemDeleted    EventType = "MEDIA_ITEM_DELETED"
	EventAnnouncementSent    EventType = "ANNOUNCEMENT_SENT"
	EventEntityMigrated      EventType = "ENTITY_MIGRATED"
	EventSystemStartup       EventType = "SYSTEM_STARTUP"
	EventSystemError         EventType = "SYSTEM_ERROR"
)

// EventLevel is the severity of an audit event.
type EventLevel string

const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

// Event is a single recorded audit event.
type Event struct {
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Level     EventLevel     `json:"level"`
	RequestID *string        `json:"request_id,omitempty"`
	PlayerID  *string        `json:"player_id,omitempty"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload"`
}

// WriteEventInput contains the fields for recording a new event.
type WriteEventInput struct {
	Type      EventType
	Level     *EventLevel
	RequestID *string
	PlayerID  *string
	Message   string
	Payload   map[string]any
}

// EventQueryFilters contains optional filters for querying events.
type EventQueryFilters struct {
	Type      *string
	Level     *EventLevel
	PlayerID  *string
	RequestID *string
	StartDate *string
	EndDate   *string
	Limit     int
	Offset    int
}
