package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelsud/webhook-engine/alert"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsAlert(t *testing.T) {
	var received alert.Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	notifier := alert.NewWebhookNotifier(server.URL, time.Second)
	a := alert.Alert{
		EventID:    "evt_1",
		EventType:  "invoice.payment_failed",
		Code:       "AUTH_FAILED",
		Message:    "401 unauthorized",
		OccurredAt: time.Now().UTC(),
	}
	require.NoError(t, notifier.Notify(context.Background(), a))
	assert.Equal(t, "evt_1", received.EventID)
	assert.Equal(t, "AUTH_FAILED", received.Code)
}

func TestWebhookNotifierNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := alert.NewWebhookNotifier(server.URL, time.Second)
	err := notifier.Notify(context.Background(), alert.Alert{EventID: "evt_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestLogNotifierNeverFails(t *testing.T) {
	notifier := alert.NewLogNotifier(zerolog.Nop())
	assert.NoError(t, notifier.Notify(context.Background(), alert.Alert{EventID: "evt_1"}))
}
