package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/sheets"
	"fintrack/internal/worker"
)

func main() {
	backfill := flag.String("backfill", "", "upsert every stored transaction of this user into the mirror before consuming")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	mirror := newMirror(ctx, logger, cfg)
	ledgerWorker := worker.NewLedgerWorker(repo, mirror)

	if *backfill != "" {
		if err := ledgerWorker.Backfill(ctx, core.UserID(*backfill)); err != nil {
			logger.Error("Backfill failed", log.FieldError, err, log.FieldUserID, *backfill)
			os.Exit(1)
		}
		logger.Info("Backfill complete", log.FieldUserID, *backfill)
	}

	if cfg.AMQPURL == "" {
		if *backfill != "" {
			return
		}
		logger.Error("AMQP_URL is required to consume ledger events")
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("Ledger-worker consuming", "queue", cfg.AMQPQueue, "sheets", cfg.SheetsEnabled())
	if err := client.ConsumeTransactionEvents(ctx, ledgerWorker.HandleTransactionEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Ledger-worker shutdown complete")
}

// newMirror picks the Google Sheets mirror when a spreadsheet is configured
// and an in-memory one otherwise.
func newMirror(ctx context.Context, logger *log.Logger, cfg *config.Config) sheets.LedgerMirror {
	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateMirror(ctx, mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize ledger mirror", log.FieldError, err, "mirror", mirrorCfg.Type.String())
		os.Exit(1)
	}
	return result.Mirror
}
