package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcelsud/webhook-engine/config"
	webhookredis "github.com/marcelsud/webhook-engine/webhook/redis"
	"github.com/rs/zerolog"
)

// cleanup removes terminal ledger records older than the retention horizon.
// Run it from cron or a scheduled job.
func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "webhook-cleanup").Logger()

	cfg, err := config.GetConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ledger, err := webhookredis.NewLedger(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MaxAttempts, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to ledger")
	}
	defer ledger.Close(ctx)

	retention := cfg.Retention()
	started := time.Now()
	deleted, err := ledger.Cleanup(ctx, retention)
	if err != nil {
		logger.Fatal().Err(err).Int64("deleted", deleted).Msg("cleanup aborted")
	}

	logger.Info().
		Int64("deleted", deleted).
		Dur("retention", retention).
		Dur("took", time.Since(started)).
		Msg("cleanup finished")
}
