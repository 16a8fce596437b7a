package models

type EventKind string

const (
	EventCreated  EventKind = "created"
	EventResolved EventKind = "resolved"
	EventDeleted  EventKind = "deleted"
)

// Event is one state-change delta pushed to realtime observers.
// Created and resolved carry the full record; deleted carries the bare id.
type Event struct {
	Kind  EventKind `json:"event"`
	Alert *Alert    `json:"data,omitempty"`
	ID    string    `json:"id,omitempty"`
}

func CreatedEvent(a *Alert) Event  { return Event{Kind: EventCreated, Alert: a} }
func ResolvedEvent(a *Alert) Event { return Event{Kind: EventResolved, Alert: a} }
func DeletedEvent(id string) Event { return Event{Kind: EventDeleted, ID: id} }
