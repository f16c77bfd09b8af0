package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-engine/alert"
	"github.com/marcelsud/webhook-engine/audit"
	"github.com/marcelsud/webhook-engine/backend"
	"github.com/marcelsud/webhook-engine/config"
	"github.com/marcelsud/webhook-engine/internal/http/chi"
	"github.com/marcelsud/webhook-engine/metrics"
	"github.com/marcelsud/webhook-engine/plans"
	"github.com/marcelsud/webhook-engine/provider"
	"github.com/marcelsud/webhook-engine/webhook"
	"github.com/marcelsud/webhook-engine/webhook/breaker"
	webhookredis "github.com/marcelsud/webhook-engine/webhook/redis"
	"github.com/marcelsud/webhook-engine/webhook/signature"
	"github.com/rs/zerolog"
)

const TIMEOUT = 30 * time.Second

/* main wires the engine together: config, ledger, breaker, clients, router,
 * processor, metrics, HTTP. Imports flow one direction only: the binary
 * imports business packages, which import the storage layer.
 */

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "webhook-engine").Logger()

	cfg, err := config.GetConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	secrets, err := cfg.SignatureSecrets()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading signing secrets")
	}
	verifier := signature.NewVerifier(secrets, cfg.SignatureTolerance)

	ledger, err := webhookredis.NewLedger(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MaxAttempts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to ledger")
	}
	defer ledger.Close(ctx)

	// The audit trail shares the ledger's Redis connection
	trail := audit.NewRedisTrail(ledger.Client(), cfg.AuditMaxEntries)

	planLoader := plans.NewLoader()
	if err := planLoader.Load(cfg.PlansFile); err != nil {
		logger.Fatal().Err(err).Str("file", cfg.PlansFile).Msg("loading plans")
	}

	var notifier alert.Notifier
	if cfg.AlertWebhookURL != "" {
		notifier = alert.NewWebhookNotifier(cfg.AlertWebhookURL, 10*time.Second)
	} else {
		notifier = alert.NewLogNotifier(logger)
	}

	var tokens backend.TokenSource
	if cfg.BackendToken != "" {
		tokens = backend.StaticToken(cfg.BackendToken)
	} else {
		tokens = backend.NewRefreshingTokenSource(cfg.BackendAuthURL, cfg.BackendAPIKey, 10*time.Second)
	}
	backendClient := backend.NewClient(cfg.BackendURL, tokens, 10*time.Second)
	providerClient := provider.NewClient(cfg.ProviderURL, cfg.ProviderAPIKey, 10*time.Second)

	br := breaker.New(cfg.BreakerSettings(), logger)

	handlers := webhook.NewHandlers(providerClient, backendClient, br, cfg.RetryPolicy(), trail, planLoader, logger)
	router := webhook.NewRouter(trail, logger)
	handlers.Register(router)

	processor := webhook.NewProcessor(ledger, router, trail, notifier, br, logger)

	collector := metrics.NewLedgerCollector(ledger, br)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("setting up metrics exporter")
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(ctx, processor, verifier, trail, exporter.ServeHTTP())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	logger.Info().Str("port", cfg.Port).Strs("event_types", router.Types()).Msg("listening")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server stopped")
	}
	if err := <-errShutdown; err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("forcing closing the server")
	}
}
