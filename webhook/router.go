package webhook

import (
	"context"
	"fmt"

	"github.com/marcelsud/webhook-engine/audit"
	"github.com/rs/zerolog"
)

// ActionUnhandled is the audit action recorded for event types with no handler
const ActionUnhandled = "webhook_unhandled"

// Handler processes one event type
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

/* Router dispatches events to one handler per recognized type
 * Unknown types are not an error: they are recorded on the audit trail and
 * acknowledged, so provider-added event types never cause redelivery storms
 */
type Router struct {
	handlers map[string]Handler
	trail    audit.Trail
	logger   zerolog.Logger
}

// NewRouter creates a router with no registered handlers
func NewRouter(trail audit.Trail, logger zerolog.Logger) *Router {
	return &Router{
		handlers: make(map[string]Handler),
		trail:    trail,
		logger:   logger,
	}
}

// Handle registers a handler for an event type, replacing any previous one
func (r *Router) Handle(eventType string, h Handler) {
	r.handlers[eventType] = h
}

// HandleFunc registers a handler function for an event type
func (r *Router) HandleFunc(eventType string, f func(ctx context.Context, event Event) error) {
	r.Handle(eventType, HandlerFunc(f))
}

// Types returns the registered event types
func (r *Router) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Route dispatches the event to its handler, or records it as unhandled
func (r *Router) Route(ctx context.Context, event Event) error {
	h, ok := r.handlers[event.Type]
	if !ok {
		r.logger.Info().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("no handler registered for event type")

		entry := audit.Entry{
			Subject:        event.Type,
			Action:         ActionUnhandled,
			Details:        map[string]any{"event_type": event.Type},
			WebhookEventID: event.ID,
		}
		if err := r.trail.Append(ctx, entry); err != nil {
			// Audit writes never block the processing outcome
			r.logger.Error().Err(err).
				Str("event_id", event.ID).
				Msg("appending unhandled audit entry")
		}
		return nil
	}

	if err := h.Handle(ctx, event); err != nil {
		return fmt.Errorf("handling %s: %w", event.Type, err)
	}
	return nil
}
