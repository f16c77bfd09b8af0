package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of the audit trail
 * XADD gives append-only semantics with a server-assigned total order
 */

const streamKey = "audit:trail"

type RedisTrail struct {
	client *redis.Client
	// maxLen bounds the stream; zero means unbounded
	maxLen int64
}

// NewRedisTrail creates a trail backed by a Redis Stream, keeping
// approximately maxLen entries (0 for unbounded)
func NewRedisTrail(client *redis.Client, maxLen int64) *RedisTrail {
	return &RedisTrail{
		client: client,
		maxLen: maxLen,
	}
}

// Append adds an entry to the stream
func (t *RedisTrail) Append(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validating audit entry: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	detailsJSON, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("marshaling audit details: %w", err)
	}

	values := map[string]interface{}{
		"id":        entry.ID,
		"subject":   entry.Subject,
		"action":    entry.Action,
		"details":   string(detailsJSON),
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
	}
	if entry.WebhookEventID != "" {
		values["webhook_event_id"] = entry.WebhookEventID
	}

	_, err = t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: t.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("appending audit entry: %w", err)
	}

	return nil
}

// Recent returns up to limit entries, newest first
func (t *RedisTrail) Recent(ctx context.Context, limit int64) ([]Entry, error) {
	messages, err := t.client.XRevRangeN(ctx, streamKey, "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("reading audit trail: %w", err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entry, err := entryFromValues(msg.Values)
		if err != nil {
			// A malformed entry must not hide the rest of the trail
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func entryFromValues(values map[string]interface{}) (Entry, error) {
	entry := Entry{
		ID:      stringValue(values, "id"),
		Subject: stringValue(values, "subject"),
		Action:  stringValue(values, "action"),
	}
	entry.WebhookEventID = stringValue(values, "webhook_event_id")

	if detailsStr := stringValue(values, "details"); detailsStr != "" {
		if err := json.Unmarshal([]byte(detailsStr), &entry.Details); err != nil {
			return Entry{}, fmt.Errorf("unmarshaling audit details: %w", err)
		}
	}

	if ts := stringValue(values, "timestamp"); ts != "" {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing audit timestamp: %w", err)
		}
		entry.Timestamp = parsed
	}

	return entry, nil
}

func stringValue(values map[string]interface{}, key string) string {
	if v, ok := values[key].(string); ok {
		return v
	}
	return ""
}
