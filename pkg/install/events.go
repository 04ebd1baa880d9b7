package install

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventType identifies what an Event reports.
type EventType string

const (
	EventStarted  EventType = "started"
	EventProgress EventType = "progress"
	EventFinished EventType = "finished"
	EventError    EventType = "error"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is a single installation update sent to the UI.
type Event struct {
	Type      EventType // What happened
	Message   string    // Progress or error text
	Success   bool      // Outcome, only meaningful for EventFinished
	SessionID string    // Session that produced the event ("" for lookup errors)
	Package   string    // Display name of the session's package
	Timestamp time.Time // When this event occurred
}

// String renders the event for logs and plain-text output.
func (e Event) String() string {
	switch e.Type {
	case EventStarted:
		return "started"
	case EventFinished:
		return fmt.Sprintf("finished(%t)", e.Success)
	default:
		return fmt.Sprintf("%s(%q)", e.Type, e.Message)
	}
}

// Handler is called with every event, one at a time and in order.
// It must not call back into the Driver. A handler that blocks stalls the
// installer's output but never Close.
type Handler func(Event)

// NoOpHandler is a handler that does nothing.
func NoOpHandler(_ Event) {}

// Listener is the four-callback shape of the event interface.
type Listener interface {
	OnStarted()
	OnProgress(message string)
	OnFinished(success bool)
	OnError(message string)
}

// ListenerHandler adapts a Listener to a Handler.
func ListenerHandler(l Listener) Handler {
	return func(e Event) {
		switch e.Type {
		case EventStarted:
			l.OnStarted()
		case EventProgress:
			l.OnProgress(e.Message)
		case EventFinished:
			l.OnFinished(e.Success)
		case EventError:
			l.OnError(e.Message)
		}
	}
}

// ChannelHandler forwards events to ch. The channel should be buffered;
// a full channel blocks the installer until the consumer catches up.
func ChannelHandler(ch chan<- Event) Handler {
	return func(e Event) {
		ch <- e
	}
}

// MultiHandler delivers each event to every handler in order.
func MultiHandler(handlers ...Handler) Handler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}

// ChannelHandlerContext is ChannelHandler with a way out: once ctx is done,
// events that cannot be sent right away are dropped.
func ChannelHandlerContext(ctx context.Context, ch chan<- Event) Handler {
	return func(e Event) {
		select {
		case ch <- e:
		case <-ctx.Done():
		}
	}
}

// Recorder collects events for later review.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		events: make([]Event, 0),
	}
}

// Handler returns a Handler that records events.
func (r *Recorder) Handler() Handler {
	return func(e Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}
}

// Events returns a copy of all recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Last returns the most recent event, or nil if none.
func (r *Recorder) Last() *Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	e := r.events[len(r.events)-1]
	return &e
}

// OfType returns all events of type t.
func (r *Recorder) OfType(t EventType) []Event {
	var matched []Event
	for _, e := range r.Events() {
		if e.Type == t {
			matched = append(matched, e)
		}
	}
	return matched
}

// Strings renders every event with Event.String.
func (r *Recorder) Strings() []string {
	events := r.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}
