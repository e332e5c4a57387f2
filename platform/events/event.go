// Package events is the in-process pub/sub layer the modules talk over.
// Lead moves, opt-outs and call dispatches are announced here so listeners
// (compliance register, logging) stay out of the publishing module's code.
package events

import (
	"context"
	"time"
)

// Event is anything that can be published on the bus. Names are dotted and
// prefixed with the owning context, e.g. "leads.status.changed".
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publication timestamp; concrete events embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Bus publishes events to subscribed handlers. Publish is fire-and-forget
// and must never block the caller; PublishSync waits for every handler and
// reports their combined error, for callers that need the side effects to
// have landed (e.g. recording an opt-out before acknowledging it).
type Bus interface {
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the given event name.
	Subscribe(eventName string, handler Handler)
}

// Handler consumes events of one name.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}
