package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-engine/webhook"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

/* Redis implementation of webhook.Ledger
 * One hash per event ID under ledger:{event_id}; all state transitions run
 * as Lua scripts so concurrent deliveries across processes observe a single
 * atomic check-and-set
 */

const (
	keyPrefix          = "ledger" // Hash naming: ledger:{event_id}
	defaultMaxAttempts = 3
)

/* claimScript creates the record if absent (attempts = 1) and re-claims a
 * retrying record back to processing. Any other existing record is a
 * conflict.
 * Returns 1 = new claim, 2 = re-claimed, 0 = conflict
 */
var claimScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	redis.call('HSET', KEYS[1],
		'event_id', ARGV[1],
		'event_type', ARGV[2],
		'payload', ARGV[3],
		'status', 'processing',
		'attempts', 1,
		'max_attempts', ARGV[4],
		'error_message', '',
		'created_at', ARGV[5],
		'updated_at', ARGV[5])
	return 1
end
if status == 'retrying' then
	redis.call('HSET', KEYS[1], 'status', 'processing', 'updated_at', ARGV[5])
	return 2
end
return 0
`)

// completeScript transitions processing/retrying to completed.
// Returns 1 = completed, 0 = terminal no-op, -1 = no record
var completeScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status == 'completed' or status == 'failed' then
	return 0
end
redis.call('HSET', KEYS[1], 'status', 'completed', 'updated_at', ARGV[1])
return 1
`)

/* failScript increments attempts and transitions to retrying while the
 * budget lasts and the error was retryable, to the terminal failed
 * otherwise. Terminal records are left untouched.
 * Returns 1 = retrying, 2 = failed, 0 = terminal no-op, -1 = no record
 */
var failScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then
	return -1
end
if status == 'completed' or status == 'failed' then
	return 0
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local max = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))
if ARGV[1] == '1' and attempts < max then
	redis.call('HSET', KEYS[1], 'status', 'retrying', 'error_message', ARGV[2], 'updated_at', ARGV[3])
	return 1
end
redis.call('HSET', KEYS[1], 'status', 'failed', 'error_message', ARGV[2], 'updated_at', ARGV[3])
return 2
`)

type Ledger struct {
	client      *redis.Client
	maxAttempts int
	logger      zerolog.Logger
}

// NewLedger connects to Redis and verifies the connection
func NewLedger(addr, password string, db int, maxAttempts int, logger zerolog.Logger) (*Ledger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewLedgerWithClient(client, maxAttempts, logger), nil
}

// NewLedgerWithClient wraps an existing client (used by tests and wiring
// that shares one client across components)
func NewLedgerWithClient(client *redis.Client, maxAttempts int, logger zerolog.Logger) *Ledger {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}
	return &Ledger{
		client:      client,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

/* IsProcessed reports whether the event already completed
 * Fails open: a ledger outage yields false, trading possible duplicate
 * processing for never dropping an event
 */
func (l *Ledger) IsProcessed(ctx context.Context, eventID string) bool {
	status, err := l.client.HGet(ctx, recordKey(eventID), "status").Result()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		l.logger.Warn().Err(err).
			Str("event_id", eventID).
			Msg("ledger check failed, failing open")
		return false
	}
	return webhook.NewStatus(status) == webhook.Completed
}

// Claim atomically creates the record or re-claims a retrying one
func (l *Ledger) Claim(ctx context.Context, event webhook.Event) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	res, err := claimScript.Run(ctx, l.client,
		[]string{recordKey(event.ID)},
		event.ID, event.Type, string(event.Data), l.maxAttempts, now,
	).Int()
	if err != nil {
		return fmt.Errorf("claiming event %s: %w", event.ID, err)
	}

	if res == 0 {
		return fmt.Errorf("event %s: %w", event.ID, webhook.ErrAlreadyClaimed)
	}
	return nil
}

// MarkCompleted transitions the record to its successful terminal state
func (l *Ledger) MarkCompleted(ctx context.Context, eventID string) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	res, err := completeScript.Run(ctx, l.client, []string{recordKey(eventID)}, now).Int()
	if err != nil {
		return fmt.Errorf("marking event %s completed: %w", eventID, err)
	}
	if res == -1 {
		return fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}
	// res == 0: already terminal, accepted as a no-op
	return nil
}

// MarkFailed increments attempts and moves to retrying or the terminal failed
func (l *Ledger) MarkFailed(ctx context.Context, eventID string, cause error, shouldRetry bool) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)

	retryArg := "0"
	if shouldRetry {
		retryArg = "1"
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}

	res, err := failScript.Run(ctx, l.client, []string{recordKey(eventID)}, retryArg, message, now).Int()
	if err != nil {
		return fmt.Errorf("marking event %s failed: %w", eventID, err)
	}
	if res == -1 {
		return fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}
	return nil
}

// Get retrieves the ledger record for an event ID
func (l *Ledger) Get(ctx context.Context, eventID string) (webhook.Record, error) {
	data, err := l.client.HGetAll(ctx, recordKey(eventID)).Result()
	if err != nil {
		return webhook.Record{}, fmt.Errorf("getting record: %w", err)
	}
	if len(data) == 0 {
		return webhook.Record{}, fmt.Errorf("event %s: %w", eventID, webhook.ErrRecordNotFound)
	}

	return webhook.Record{
		EventID:      data["event_id"],
		EventType:    data["event_type"],
		Status:       webhook.NewStatus(data["status"]),
		Attempts:     int(parseInt64(data["attempts"])),
		MaxAttempts:  int(parseInt64(data["max_attempts"])),
		ErrorMessage: data["error_message"],
		CreatedAt:    time.Unix(parseInt64(data["created_at"]), 0),
		UpdatedAt:    time.Unix(parseInt64(data["updated_at"]), 0),
	}, nil
}

/* Cleanup deletes terminal records older than the retention horizon
 * Best-effort SCAN pass; a partial failure leaves the remainder for the
 * next run
 */
func (l *Ledger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).Unix()
	var deleted int64

	var cursor uint64
	for {
		keys, nextCursor, err := l.client.Scan(ctx, cursor, keyPrefix+":*", 200).Result()
		if err != nil {
			return deleted, fmt.Errorf("scanning ledger keys: %w", err)
		}

		for _, key := range keys {
			fields, err := l.client.HMGet(ctx, key, "status", "updated_at").Result()
			if err != nil {
				continue
			}

			status, _ := fields[0].(string)
			updatedAtStr, _ := fields[1].(string)
			if !webhook.NewStatus(status).IsTerminal() {
				continue
			}
			if parseInt64(updatedAtStr) >= cutoff {
				continue
			}

			if err := l.client.Del(ctx, key).Err(); err == nil {
				deleted++
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

// StatusCounts returns how many records sit in each status, for metrics
func (l *Ledger) StatusCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)

	var cursor uint64
	for {
		keys, nextCursor, err := l.client.Scan(ctx, cursor, keyPrefix+":*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning ledger keys: %w", err)
		}

		for _, key := range keys {
			status, err := l.client.HGet(ctx, key, "status").Result()
			if err != nil {
				continue
			}
			counts[status]++
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return counts, nil
}

// Ping verifies ledger reachability for health checks
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging ledger: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (l *Ledger) Close(ctx context.Context) error {
	return l.client.Close()
}

// Client returns the underlying Redis client so wiring can share it with
// the audit trail and metrics collector
func (l *Ledger) Client() *redis.Client {
	return l.client
}

func recordKey(eventID string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, eventID)
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}
