package webhook

import (
	"encoding/json"
	"time"
)

/* Event represents a verified notification from the payment provider
 * Immutable as received: signature verification and payload parsing happen
 * in the request layer before an Event is constructed
 */
type Event struct {
	// ID is the provider-assigned, globally unique event identifier
	ID string

	// Type is the provider event type tag, e.g. "customer.subscription.updated"
	Type string

	// Data is the opaque event object as delivered by the provider
	Data json.RawMessage

	ReceivedAt time.Time
}

// Record is one ledger row per distinct event ID
type Record struct {
	EventID      string
	EventType    string
	Status       Status
	Attempts     int
	MaxAttempts  int
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
