package events

import (
	"time"
)

// EventType identifies what happened to a resource.
type EventType string

const (
	EventCreated    EventType = "CREATED"
	EventModified   EventType = "MODIFIED"
	EventDeleted    EventType = "DELETED"
	EventReconciled EventType = "RECONCILED"
)

// Event is the payload delivered to subscribers and streamed over SSE.
type Event struct {
	EventType           EventType   `json:"event_type"`
	ResourceID          int64       `json:"resource_id"`
	ResourceName        string      `json:"resource_name"`
	ResourceTypeName    string      `json:"resource_type_name"`
	ResourceTypeVersion string      `json:"resource_type_version"`
	ResourceData        interface{} `json:"resource_data,omitempty"`
	Timestamp           time.Time   `json:"timestamp"`
}

// Filter restricts which events a subscriber receives. Zero values match
// everything.
type Filter struct {
	ResourceTypeName string
	ResourceID       int64
	EventTypes       []EventType
}

// Matches reports whether the event passes the filter. Filtering happens on
// the dispatch side so uninterested subscribers never consume buffer space.
func (f Filter) Matches(e Event) bool {
	if f.ResourceTypeName != "" && f.ResourceTypeName != e.ResourceTypeName {
		return false
	}
	if f.ResourceID != 0 && f.ResourceID != e.ResourceID {
		return false
	}
	if len(f.EventTypes) > 0 {
		found := false
		for _, t := range f.EventTypes {
			if t == e.EventType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
