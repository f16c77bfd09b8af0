package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelsud/webhook-engine/provider"
	"github.com/marcelsud/webhook-engine/webhook/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscriptionRetrieve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/subscriptions/sub_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":       "sub_1",
			"customer": "cus_1",
			"price_id": "price_pro",
			"status":   "active",
		})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk_test", time.Second)
	sub, err := client.Subscription(context.Background(), "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "cus_1", sub.CustomerID)
	assert.Equal(t, "price_pro", sub.PriceID)
}

func TestCheckoutSessionRetrieve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":           "cs_1",
			"customer":     "cus_1",
			"subscription": "sub_1",
			"amount_total": 2900,
			"currency":     "usd",
		})
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk_test", time.Second)
	session, err := client.CheckoutSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2900), session.AmountTotal)
	assert.Equal(t, "sub_1", session.SubscriptionID)
}

// 404s must surface as "<resource> <id> not found" so the error classifier
// labels them RESOURCE_NOT_FOUND.
func TestNotFoundClassifies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk_test", time.Second)
	_, err := client.Customer(context.Background(), "cus_ghost")
	require.Error(t, err)
	assert.Equal(t, "customer cus_ghost not found", err.Error())

	werr := classify.Classify(err)
	assert.Equal(t, classify.CodeResourceNotFound, werr.Code)
	assert.False(t, werr.Retryable)
}

func TestServerErrorKeepsStatusInMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := provider.NewClient(server.URL, "sk_test", time.Second)
	_, err := client.Invoice(context.Background(), "in_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")

	werr := classify.Classify(err)
	assert.Equal(t, classify.CodeRateLimit, werr.Code)
	assert.True(t, werr.Retryable)
}

func TestEmptyIDRejectedWithoutRequest(t *testing.T) {
	client := provider.NewClient("http://127.0.0.1:1", "sk_test", time.Second)
	_, err := client.Subscription(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id cannot be empty")
}
