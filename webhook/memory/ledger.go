package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelsud/webhook-engine/webhook"
)

/* In-memory implementation of webhook.Ledger
 * Single-process only: the mutex gives the same atomic claim semantics the
 * Redis scripts provide across processes. Used by tests and local development.
 */

const defaultMaxAttempts = 3

type Ledger struct {
	mu          sync.Mutex
	records     map[string]*webhook.Record
	maxAttempts int
}

// NewLedger creates an empty in-memory ledger
func NewLedger(maxAttempts int) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &Ledger{
		records:     make(map[string]*webhook.Record),
		maxAttempts: maxAttempts,
	}
}

// IsProcessed reports whether the event already completed
func (l *Ledger) IsProcessed(_ context.Context, eventID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[eventID]
	return ok && record.Status == webhook.Completed
}

// Claim atomically creates the record or re-claims a retrying one
func (l *Ledger) Claim(_ context.Context, event webhook.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	record, ok := l.records[event.ID]
	if !ok {
		l.records[event.ID] = &webhook.Record{
			EventID:     event.ID,
			EventType:   event.Type,
			Status:      webhook.Processing,
			Attempts:    1,
			MaxAttempts: l.maxAttempts,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return nil
	}

	if record.Status == webhook.Retrying {
		record.Status = webhook.Processing
		record.UpdatedAt = now
		return nil
	}

	return fmt.Errorf("event %s: %w", event.ID, webhook.ErrAlreadyClaimed)
}

// MarkCompleted transitions the record to its successful terminal state
func (l *Ledger) MarkCompleted(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[eventID]
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}
	if record.Status.IsTerminal() {
		return nil
	}

	record.Status = webhook.Completed
	record.UpdatedAt = time.Now()
	return nil
}

// MarkFailed increments attempts and moves to retrying or the terminal failed
func (l *Ledger) MarkFailed(_ context.Context, eventID string, cause error, shouldRetry bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[eventID]
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}
	if record.Status.IsTerminal() {
		return nil
	}

	record.Attempts++
	if cause != nil {
		record.ErrorMessage = cause.Error()
	}
	if shouldRetry && record.Attempts < record.MaxAttempts {
		record.Status = webhook.Retrying
	} else {
		record.Status = webhook.Failed
	}
	record.UpdatedAt = time.Now()
	return nil
}

// Get retrieves the ledger record for an event ID
func (l *Ledger) Get(_ context.Context, eventID string) (webhook.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[eventID]
	if !ok {
		return webhook.Record{}, fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}
	return *record, nil
}

// Cleanup deletes terminal records older than the retention horizon
func (l *Ledger) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	for id, record := range l.records {
		if record.Status.IsTerminal() && record.UpdatedAt.Before(cutoff) {
			delete(l.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds: the ledger lives in process memory
func (l *Ledger) Ping(context.Context) error {
	return nil
}

// Close is a no-op
func (l *Ledger) Close(context.Context) error {
	return nil
}

// Len returns the number of records, for tests
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
