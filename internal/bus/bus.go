// Package bus provides the in-process event bus connecting the gateway
// session to the forwarding pipeline. Dispatch is synchronous and unbuffered:
// one emitted event runs every registered handler before Emit returns, so the
// bus never queues, never sheds, and never reorders.
package bus

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"kookbridge/internal/domain"
)

// Well-known event types.
const (
	EventGatewayReady   = "gateway.ready"
	EventGatewayError   = "gateway.error"
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
)

// Event is a single occurrence on the bus. Only the fields relevant to the
// event type are populated.
type Event struct {
	Type      string
	Source    string
	Timestamp time.Time

	Chat   *domain.ChatEvent // message.* events
	Kind   domain.EventKind  // message.* events
	BotTag string            // gateway.ready
	Err    error             // gateway.error
}

// Handler is a callback for events.
type Handler func(Event)

// namedHandler pairs a handler with an ID for unsubscription.
type namedHandler struct {
	ID      string
	Handler Handler
}

// EventBus is a topic-based publish/subscribe bus. Use "*" to subscribe to
// all events. Handler panics are recovered and logged; a misbehaving handler
// must never take down the gateway event loop.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	logger   *slog.Logger
}

// New creates an EventBus.
func New(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]namedHandler),
		logger:   logger,
	}
}

// On registers a handler for the given event type and returns its ID.
func (eb *EventBus) On(eventType string, handler Handler) string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	id := eventType + "-" + strconv.Itoa(len(eb.handlers[eventType]))
	eb.handlers[eventType] = append(eb.handlers[eventType], namedHandler{ID: id, Handler: handler})
	return id
}

// Off removes a handler by its ID.
func (eb *EventBus) Off(eventType, handlerID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	handlers := eb.handlers[eventType]
	for i, h := range handlers {
		if h.ID == handlerID {
			eb.handlers[eventType] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Emit publishes an event to all handlers registered for its type, then to
// wildcard handlers, synchronously and in registration order.
func (eb *EventBus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := make([]namedHandler, 0, len(eb.handlers[event.Type])+len(eb.handlers["*"]))
	handlers = append(handlers, eb.handlers[event.Type]...)
	handlers = append(handlers, eb.handlers["*"]...)
	eb.mu.RUnlock()

	for _, h := range handlers {
		eb.dispatch(event, h)
	}
}

func (eb *EventBus) dispatch(event Event, h namedHandler) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event handler panic", "event", event.Type, "handler", h.ID, "panic", r)
		}
	}()
	h.Handler(event)
}
