package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryTrail is an in-memory Trail for tests and local development
type MemoryTrail struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{}
}

// Append adds an entry to the in-memory log
func (t *MemoryTrail) Append(_ context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validating audit entry: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	return nil
}

// Recent returns up to limit entries, newest first
func (t *MemoryTrail) Recent(_ context.Context, limit int64) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := int64(len(t.entries))
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Entry, 0, n)
	for i := len(t.entries) - 1; i >= 0 && int64(len(out)) < n; i-- {
		out = append(out, t.entries[i])
	}
	return out, nil
}

// ByEventID returns all entries that reference the given webhook event,
// oldest first
func (t *MemoryTrail) ByEventID(_ context.Context, eventID string) ([]Entry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for _, e := range t.entries {
		if e.WebhookEventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of appended entries
func (t *MemoryTrail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
