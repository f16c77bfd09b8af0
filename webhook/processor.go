package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/marcelsud/webhook-engine/alert"
	"github.com/marcelsud/webhook-engine/audit"
	"github.com/marcelsud/webhook-engine/webhook/breaker"
	"github.com/marcelsud/webhook-engine/webhook/classify"
	"github.com/rs/zerolog"
)

// ActionFailed is the audit action recorded when processing fails
const ActionFailed = "webhook_failed"

// ProcessingResult is the only outcome callers above the processor see.
// Raw errors never escape: failures are classified first.
type ProcessingResult struct {
	Success        bool
	EventID        string
	ProcessedAt    time.Time
	Error          *classify.Error
	RetryScheduled bool
}

// Health reports ledger reachability and breaker state for liveness probes
type Health struct {
	LedgerOK            bool
	BreakerState        string
	ConsecutiveFailures int
	CheckedAt           time.Time
}

// Healthy returns true when the engine can accept events
func (h Health) Healthy() bool {
	return h.LedgerOK
}

/* Processor orchestrates one event delivery end to end:
 * idempotency check -> claim -> route -> complete/fail + audit + alert
 * Each Process call is an independent unit of work; concurrent duplicate
 * deliveries are resolved by the ledger's atomic claim, never by locking
 */
type Processor struct {
	ledger   Ledger
	router   *Router
	trail    audit.Trail
	notifier alert.Notifier
	breaker  *breaker.Breaker
	logger   zerolog.Logger
}

// NewProcessor creates a processor with dependency injection
func NewProcessor(ledger Ledger, router *Router, trail audit.Trail, notifier alert.Notifier, br *breaker.Breaker, logger zerolog.Logger) *Processor {
	return &Processor{
		ledger:   ledger,
		router:   router,
		trail:    trail,
		notifier: notifier,
		breaker:  br,
		logger:   logger,
	}
}

// Process applies the event's side effects exactly once across any number
// of concurrent or sequential deliveries of the same event ID
func (p *Processor) Process(ctx context.Context, event Event) ProcessingResult {
	logger := p.logger.With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Logger()

	// Fast pre-check; fails open inside the ledger so an outage never
	// permanently drops a delivery
	if p.ledger.IsProcessed(ctx, event.ID) {
		logger.Debug().Msg("event already completed, skipping")
		return p.success(event)
	}

	if err := p.ledger.Claim(ctx, event); err != nil {
		if errors.Is(err, ErrAlreadyClaimed) {
			// A concurrent duplicate is already in flight; the winner
			// finishes the work, so this delivery reports success
			logger.Debug().Msg("event already claimed, skipping")
			return p.success(event)
		}

		// Without a claim there is no exclusivity guarantee, so the whole
		// call fails and the provider redelivers
		werr := classify.Classify(err)
		logger.Error().Err(err).Str("code", string(werr.Code)).Msg("claiming event")
		return ProcessingResult{
			Success:        false,
			EventID:        event.ID,
			ProcessedAt:    time.Now().UTC(),
			Error:          werr,
			RetryScheduled: werr.Retryable,
		}
	}

	if err := p.router.Route(ctx, event); err != nil {
		return p.fail(ctx, logger, event, err)
	}

	if err := p.ledger.MarkCompleted(ctx, event.ID); err != nil {
		// Non-critical path: the side effects are applied; at worst a
		// redelivery is absorbed by the claim conflict
		logger.Error().Err(err).Msg("marking event completed")
	}

	logger.Info().Msg("event processed")
	return p.success(event)
}

// HealthCheck verifies ledger reachability and reports breaker state
func (p *Processor) HealthCheck(ctx context.Context) Health {
	snap := p.breaker.Snapshot()
	return Health{
		LedgerOK:            p.ledger.Ping(ctx) == nil,
		BreakerState:        snap.State.String(),
		ConsecutiveFailures: snap.ConsecutiveFailures,
		CheckedAt:           time.Now().UTC(),
	}
}

func (p *Processor) success(event Event) ProcessingResult {
	return ProcessingResult{
		Success:     true,
		EventID:     event.ID,
		ProcessedAt: time.Now().UTC(),
	}
}

func (p *Processor) fail(ctx context.Context, logger zerolog.Logger, event Event, cause error) ProcessingResult {
	werr := classify.Classify(cause)

	logger.Error().Err(cause).
		Str("code", string(werr.Code)).
		Bool("retryable", werr.Retryable).
		Msg("event processing failed")

	if err := p.ledger.MarkFailed(ctx, event.ID, werr, werr.Retryable); err != nil {
		logger.Error().Err(err).Msg("marking event failed")
	}

	entry := audit.Entry{
		Subject:        event.Type,
		Action:         ActionFailed,
		WebhookEventID: event.ID,
		Details: map[string]any{
			"code":      string(werr.Code),
			"message":   werr.Message,
			"retryable": werr.Retryable,
		},
	}
	if err := p.trail.Append(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("appending failure audit entry")
	}

	// Retryable failures self-heal via redelivery; only permanent ones
	// need a human
	if !werr.Retryable {
		a := alert.Alert{
			EventID:    event.ID,
			EventType:  event.Type,
			Code:       string(werr.Code),
			Message:    werr.Message,
			OccurredAt: time.Now().UTC(),
		}
		if err := p.notifier.Notify(ctx, a); err != nil {
			logger.Error().Err(err).Msg("sending failure alert")
		}
	}

	return ProcessingResult{
		Success:        false,
		EventID:        event.ID,
		ProcessedAt:    time.Now().UTC(),
		Error:          werr,
		RetryScheduled: werr.Retryable,
	}
}
