package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-engine/webhook/breaker"
)

// StatusCounter is the slice of the ledger the collector reads
type StatusCounter interface {
	StatusCounts(ctx context.Context) (map[string]int64, error)
}

// LedgerCollector collects metrics from the event ledger and the circuit breaker
type LedgerCollector struct {
	ledger  StatusCounter
	breaker *breaker.Breaker
}

// NewLedgerCollector creates a collector over the ledger and breaker
func NewLedgerCollector(ledger StatusCounter, br *breaker.Breaker) *LedgerCollector {
	return &LedgerCollector{
		ledger:  ledger,
		breaker: br,
	}
}

// Collect gathers current metrics from the system
func (c *LedgerCollector) Collect(ctx context.Context) (Metrics, error) {
	statusCounts, err := c.GetStatusCounts(ctx)
	if err != nil {
		return Metrics{}, err
	}

	breakerState, err := c.GetBreakerState(ctx)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		StatusCounts: statusCounts,
		Breaker:      breakerState,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// GetStatusCounts returns the count of ledger records by status
func (c *LedgerCollector) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	counts, err := c.ledger.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("collecting ledger status counts: %w", err)
	}
	return counts, nil
}

// GetBreakerState returns the circuit breaker state
func (c *LedgerCollector) GetBreakerState(_ context.Context) (BreakerMetrics, error) {
	snap := c.breaker.Snapshot()
	return BreakerMetrics{
		State:               snap.State.String(),
		ConsecutiveFailures: int64(snap.ConsecutiveFailures),
	}, nil
}
