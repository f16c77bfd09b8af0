package breaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

/* Breaker guards calls to a single downstream dependency
 * One instance per dependency, shared by every event routed through it
 * State lives in memory only; a restart resets it to Closed
 */

// ErrOpen is returned when the breaker rejects a call without invoking it
var ErrOpen = errors.New("circuit breaker is open")

// State represents the current mode of the breaker
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Settings configures the breaker thresholds
type Settings struct {
	// FailureThreshold is the number of consecutive failures that trips the breaker
	FailureThreshold int

	// RecoveryTime is how long the breaker stays open before probing again
	RecoveryTime time.Duration
}

// DefaultSettings matches the documented defaults: 5 failures, 60s recovery
var DefaultSettings = Settings{
	FailureThreshold: 5,
	RecoveryTime:     60 * time.Second,
}

// Snapshot is a point-in-time view of the breaker for health checks and metrics
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	LastFailureAt       time.Time
}

type Breaker struct {
	mu       sync.Mutex
	settings Settings
	logger   zerolog.Logger

	state               State
	consecutiveFailures int
	lastFailureAt       time.Time

	// now is swappable so tests can control the recovery window
	now func() time.Time
}

// New creates a breaker in the Closed state
func New(settings Settings, logger zerolog.Logger) *Breaker {
	if settings.FailureThreshold < 1 {
		settings.FailureThreshold = DefaultSettings.FailureThreshold
	}
	if settings.RecoveryTime <= 0 {
		settings.RecoveryTime = DefaultSettings.RecoveryTime
	}
	return &Breaker{
		settings: settings,
		logger:   logger,
		state:    Closed,
		now:      time.Now,
	}
}

/* Do executes op under the breaker
 * Open and inside the recovery window: fails immediately with ErrOpen
 * Open and past the window: transitions to HalfOpen and probes with this call
 */
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure()
		return err
	}

	b.recordSuccess()
	return nil
}

// Snapshot returns the current breaker state for observability
func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailureAt:       b.lastFailureAt,
	}
}

// allow decides whether the next call may proceed, applying the lazy
// Open -> HalfOpen transition when the recovery window has elapsed
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return nil
	}

	if b.now().Sub(b.lastFailureAt) <= b.settings.RecoveryTime {
		return ErrOpen
	}

	b.state = HalfOpen
	b.logger.Info().
		Str("state", b.state.String()).
		Msg("circuit breaker probing after recovery window")
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == HalfOpen {
		b.logger.Info().Msg("circuit breaker closed after successful probe")
	}
	b.state = Closed
	b.consecutiveFailures = 0
}

func (b *Breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailureAt = b.now()

	if b.state == HalfOpen || b.consecutiveFailures >= b.settings.FailureThreshold {
		if b.state != Open {
			b.logger.Warn().
				Int("consecutive_failures", b.consecutiveFailures).
				Msg("circuit breaker opened")
		}
		b.state = Open
	}
}
