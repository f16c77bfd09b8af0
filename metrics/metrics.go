package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the event processing engine.
type Metrics struct {
	// StatusCounts maps ledger status name to the number of records in it
	StatusCounts map[string]int64 `json:"status_counts"`

	// Breaker is the current circuit breaker state
	Breaker BreakerMetrics `json:"breaker"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// BreakerMetrics describes the circuit breaker for dashboards and alerting.
type BreakerMetrics struct {
	// State is "closed", "open" or "half_open"
	State string `json:"state"`

	// ConsecutiveFailures is the current failure streak feeding the threshold
	ConsecutiveFailures int64 `json:"consecutive_failures"`
}

// Collector defines the interface for collecting metrics from the engine.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)

	// GetStatusCounts returns the count of ledger records by status
	GetStatusCounts(ctx context.Context) (map[string]int64, error)

	// GetBreakerState returns the circuit breaker state
	GetBreakerState(ctx context.Context) (BreakerMetrics, error)
}
