package chi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/marcelsud/webhook-engine/audit"
	"github.com/marcelsud/webhook-engine/webhook"
	"github.com/marcelsud/webhook-engine/webhook/envelope"
	"github.com/marcelsud/webhook-engine/webhook/signature"
)

// maxBodySize bounds provider payloads; deliveries are small JSON documents
const maxBodySize = 1 << 20

/* HTTP layer DTOs for the ingestion API
 * Separate from domain entities to avoid leaking internal structure
 */

// eventResponse represents the API response for a processed delivery
type eventResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
}

// healthResponse represents the health probe payload
type healthResponse struct {
	Status              string `json:"status"`
	LedgerOK            bool   `json:"ledger_ok"`
	BreakerState        string `json:"breaker_state"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
}

// auditResponse represents one audit entry in the API
type auditResponse struct {
	ID             string         `json:"id"`
	Subject        string         `json:"subject"`
	Action         string         `json:"action"`
	Details        map[string]any `json:"details,omitempty"`
	WebhookEventID string         `json:"webhook_event_id,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// postEvent handles POST /v1/events
func postEvent(processor EventProcessor, verifier *signature.Verifier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		msgID := r.Header.Get("webhook-id")
		if err := verifier.VerifyRequest(
			msgID,
			r.Header.Get("webhook-timestamp"),
			r.Header.Get("webhook-signature"),
			body,
		); err != nil {
			// 401 tells the provider the delivery was rejected, not lost
			http.Error(w, "signature verification failed", http.StatusUnauthorized)
			return
		}

		env, err := envelope.Parse(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		event := webhook.Event{
			ID:         env.ID,
			Type:       env.Type,
			Data:       env.Data,
			ReceivedAt: time.Now().UTC(),
		}

		result := processor.Process(r.Context(), event)
		writeResult(w, result)
	})
}

/* writeResult maps the processing outcome onto the provider's redelivery
 * contract:
 *   success                -> 200, delivery acknowledged
 *   retryable failure      -> 500, the provider redelivers later
 *   non-retryable failure  -> 200, redelivering cannot help; the alert
 *                             notifier has already fired
 */
func writeResult(w http.ResponseWriter, result webhook.ProcessingResult) {
	resp := eventResponse{EventID: result.EventID}

	switch {
	case result.Success:
		resp.Status = "processed"
		writeJSON(w, http.StatusOK, resp)
	case result.RetryScheduled:
		resp.Status = "retry_scheduled"
		if result.Error != nil {
			resp.Code = string(result.Error.Code)
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		resp.Status = "failed"
		if result.Error != nil {
			resp.Code = string(result.Error.Code)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// getHealth handles GET /health
func getHealth(processor EventProcessor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := processor.HealthCheck(r.Context())

		resp := healthResponse{
			Status:              "healthy",
			LedgerOK:            health.LedgerOK,
			BreakerState:        health.BreakerState,
			ConsecutiveFailures: health.ConsecutiveFailures,
		}
		status := http.StatusOK
		if !health.Healthy() {
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	})
}

// getAudit handles GET /v1/audit
func getAudit(trail audit.Reader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := int64(50)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 1 || parsed > 1000 {
				http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		entries, err := trail.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		responses := make([]auditResponse, 0, len(entries))
		for _, entry := range entries {
			responses = append(responses, auditResponse{
				ID:             entry.ID,
				Subject:        entry.Subject,
				Action:         entry.Action,
				Details:        entry.Details,
				WebhookEventID: entry.WebhookEventID,
				Timestamp:      entry.Timestamp,
			})
		}
		writeJSON(w, http.StatusOK, responses)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
