package webhook

import (
	"context"
	"errors"
	"time"
)

/* Small, focused interfaces for the event ledger
 * The ledger is the source of truth for cross-process mutual exclusion:
 * Claim must be a single atomic create-if-absent operation
 */

// ErrAlreadyClaimed is returned by Claim when a record for the event ID
// already exists in a non-reclaimable state
var ErrAlreadyClaimed = errors.New("event already claimed")

// ErrRecordNotFound is returned when no ledger record exists for an event ID
var ErrRecordNotFound = errors.New("ledger record not found")

// LedgerReader provides read operations on the ledger
type LedgerReader interface {
	/* IsProcessed reports whether a completed record exists for the event
	 * It fails open: on ledger access failure it returns false, so that a
	 * ledger outage can cause duplicate processing but never dropped events
	 */
	IsProcessed(ctx context.Context, eventID string) bool

	Get(ctx context.Context, eventID string) (Record, error)
}

// LedgerWriter provides write operations on the ledger
type LedgerWriter interface {
	/* Claim atomically creates a Processing record with attempts = 1
	 * A record in Retrying is re-claimed back to Processing; any other
	 * existing record yields ErrAlreadyClaimed
	 */
	Claim(ctx context.Context, event Event) error

	// MarkCompleted transitions Processing or Retrying to Completed.
	// Terminal records are left untouched.
	MarkCompleted(ctx context.Context, eventID string) error

	/* MarkFailed increments attempts and transitions to Retrying when
	 * shouldRetry is set and attempts remain below max_attempts, to the
	 * terminal Failed otherwise. Terminal records are left untouched.
	 */
	MarkFailed(ctx context.Context, eventID string, cause error, shouldRetry bool) error

	// Cleanup deletes terminal records older than the retention horizon
	// and returns how many were removed. Best-effort.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

/* Interface composition - combining small interfaces into larger ones
 * This is preferred over large monolithic interfaces
 */
type Ledger interface {
	LedgerReader
	LedgerWriter
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
