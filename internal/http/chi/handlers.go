package chi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-engine/audit"
	"github.com/marcelsud/webhook-engine/webhook"
	"github.com/marcelsud/webhook-engine/webhook/signature"
)

// EventProcessor is the slice of the processor the HTTP layer depends on
type EventProcessor interface {
	Process(ctx context.Context, event webhook.Event) webhook.ProcessingResult
	HealthCheck(ctx context.Context) webhook.Health
}

// Handlers sets up the webhook ingestion API routes
func Handlers(ctx context.Context, processor EventProcessor, verifier *signature.Verifier, auditTrail audit.Reader, metricsHandler http.Handler) *chi.Mux {
	logger := httplog.NewLogger("webhook-engine", httplog.Options{
		JSON: true,
	})

	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", getHealth(processor).ServeHTTP)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		// Provider deliveries enter here
		r.Post("/events", postEvent(processor, verifier).ServeHTTP)

		// Recent audit entries, for inspection
		r.Get("/audit", getAudit(auditTrail).ServeHTTP)
	})

	return r
}
