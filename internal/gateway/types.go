package gateway

import (
	"context"
	"time"
)

// EventKind categorizes engine telemetry events.
type EventKind string

const (
	EventCycleComplete  EventKind = "cycle_complete"
	EventMemoryAdmitted EventKind = "memory_admitted"
	EventFeedback       EventKind = "feedback_applied"
	EventHostConnected  EventKind = "host_connected"
)

// Event is one outbound telemetry notification.
type Event struct {
	Kind      EventKind `json:"kind"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Priority  int       `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink delivers events to one external surface.
type Sink interface {
	Name() string
	Connect(ctx context.Context) error
	Publish(ctx context.Context, ev *Event) error
	Close() error
}
