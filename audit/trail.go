package audit

import (
	"context"
	"fmt"
	"time"
)

/* Append-only trail of business-meaningful state transitions
 * Entries are written once and never updated; the back-reference to the
 * triggering webhook event is a relation, not ownership
 */

// Entry is a single audit record
type Entry struct {
	// ID is assigned by the trail when empty
	ID string

	// Subject identifies who or what the entry pertains to (customer ID, user ID)
	Subject string

	// Action is the business transition tag, e.g. "subscription_updated"
	Action string

	// Details carries structured key/value context for the transition
	Details map[string]any

	// WebhookEventID is the provider event that caused this entry, if any
	WebhookEventID string

	Timestamp time.Time
}

// Validate checks the minimal shape of an entry before it is appended
func (e Entry) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("audit entry action cannot be empty")
	}
	if e.Subject == "" {
		return fmt.Errorf("audit entry subject cannot be empty")
	}
	return nil
}

// Trail appends entries to durable storage
type Trail interface {
	Append(ctx context.Context, entry Entry) error
}

// Reader provides read access for inspection and tests
type Reader interface {
	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int64) ([]Entry, error)
}
