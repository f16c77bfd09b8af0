package webhook_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/marcelsud/webhook-engine/alert"
	alertmocks "github.com/marcelsud/webhook-engine/alert/mocks"
	"github.com/marcelsud/webhook-engine/audit"
	auditmocks "github.com/marcelsud/webhook-engine/audit/mocks"
	"github.com/marcelsud/webhook-engine/webhook"
	"github.com/marcelsud/webhook-engine/webhook/breaker"
	"github.com/marcelsud/webhook-engine/webhook/classify"
	"github.com/marcelsud/webhook-engine/webhook/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testEvent(id, eventType string) webhook.Event {
	return webhook.Event{
		ID:   id,
		Type: eventType,
		Data: json.RawMessage(`{"id":"obj_1"}`),
	}
}

func newProcessor(t *testing.T, ledger *mocks.Ledger, trail *auditmocks.Trail, notifier *alertmocks.Notifier, handler func(ctx context.Context, event webhook.Event) error) *webhook.Processor {
	t.Helper()

	logger := zerolog.Nop()
	router := webhook.NewRouter(trail, logger)
	if handler != nil {
		router.HandleFunc("customer.subscription.updated", handler)
	}
	br := breaker.New(breaker.DefaultSettings, logger)
	return webhook.NewProcessor(ledger, router, trail, notifier, br, logger)
}

func TestProcessSkipsCompletedEvent(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(true)

	handlerCalls := 0
	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		handlerCalls++
		return nil
	})

	result := proc.Process(context.Background(), event)

	assert.True(t, result.Success)
	assert.Equal(t, "evt_1", result.EventID)
	assert.Nil(t, result.Error)
	assert.Equal(t, 0, handlerCalls)
}

func TestProcessSkipsConcurrentlyClaimedEvent(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, webhook.MatchEvent(func(e webhook.Event) bool {
		return e.ID == "evt_1"
	})).Return(webhook.ErrAlreadyClaimed)

	handlerCalls := 0
	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		handlerCalls++
		return nil
	})

	result := proc.Process(context.Background(), event)

	assert.True(t, result.Success)
	assert.Equal(t, 0, handlerCalls)
}

func TestProcessSuccess(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkCompleted", mock.Anything, "evt_1").Return(nil)

	handlerCalls := 0
	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		handlerCalls++
		return nil
	})

	result := proc.Process(context.Background(), event)

	assert.True(t, result.Success)
	assert.False(t, result.RetryScheduled)
	assert.Equal(t, 1, handlerCalls)
}

func TestProcessRetryableFailureSchedulesRetryWithoutAlert(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkFailed", mock.Anything, "evt_1", mock.Anything, true).Return(nil)
	trail.On("Append", mock.Anything, audit.MatchEntry(func(e audit.Entry) bool {
		return e.Action == webhook.ActionFailed && e.WebhookEventID == "evt_1"
	})).Return(nil)

	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		return errors.New("dial tcp 10.0.0.1:443: connection refused")
	})

	result := proc.Process(context.Background(), event)

	assert.False(t, result.Success)
	assert.True(t, result.RetryScheduled)
	require.NotNil(t, result.Error)
	assert.Equal(t, classify.CodeNetworkError, result.Error.Code)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestProcessNonRetryableFailureAlerts(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkFailed", mock.Anything, "evt_1", mock.Anything, false).Return(nil)
	trail.On("Append", mock.Anything, audit.MatchEntry(func(e audit.Entry) bool {
		return e.Action == webhook.ActionFailed
	})).Return(nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(a alert.Alert) bool {
		return a.EventID == "evt_1" && a.Code == string(classify.CodeAuthFailed)
	})).Return(nil)

	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		return errors.New("401 unauthorized: invalid api key")
	})

	result := proc.Process(context.Background(), event)

	assert.False(t, result.Success)
	assert.False(t, result.RetryScheduled)
	require.NotNil(t, result.Error)
	assert.Equal(t, classify.CodeAuthFailed, result.Error.Code)
}

func TestProcessClaimErrorFailsTheCall(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, mock.Anything).Return(errors.New("dial tcp 127.0.0.1:6379: connection refused"))

	handlerCalls := 0
	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		handlerCalls++
		return nil
	})

	result := proc.Process(context.Background(), event)

	assert.False(t, result.Success)
	assert.True(t, result.RetryScheduled)
	require.NotNil(t, result.Error)
	assert.Equal(t, classify.CodeNetworkError, result.Error.Code)
	assert.Equal(t, 0, handlerCalls)
}

func TestProcessMarkCompletedErrorStillSucceeds(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	event := testEvent("evt_1", "customer.subscription.updated")
	ledger.On("IsProcessed", mock.Anything, "evt_1").Return(false)
	ledger.On("Claim", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkCompleted", mock.Anything, "evt_1").Return(errors.New("connection reset by peer"))

	proc := newProcessor(t, ledger, trail, notifier, func(ctx context.Context, event webhook.Event) error {
		return nil
	})

	result := proc.Process(context.Background(), event)

	// Side effects are applied; a redelivery is absorbed by the claim conflict
	assert.True(t, result.Success)
}

func TestHealthCheck(t *testing.T) {
	ledger := mocks.NewLedger(t)
	trail := auditmocks.NewTrail(t)
	notifier := alertmocks.NewNotifier(t)

	ledger.On("Ping", mock.Anything).Return(nil).Once()
	proc := newProcessor(t, ledger, trail, notifier, nil)

	health := proc.HealthCheck(context.Background())
	assert.True(t, health.Healthy())
	assert.Equal(t, "closed", health.BreakerState)
	assert.Zero(t, health.ConsecutiveFailures)

	ledger.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()
	health = proc.HealthCheck(context.Background())
	assert.False(t, health.Healthy())
}
