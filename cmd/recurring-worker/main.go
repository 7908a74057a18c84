package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	once := flag.Bool("once", false, "run a single pass and exit")
	dryRun := flag.Bool("dry-run", false, "report due occurrences without writing them")
	date := flag.String("date", "", "treat this YYYY-MM-DD date as today")
	user := flag.String("user", "", "only process templates owned by this user")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentRecurring)
	cfg := cli.LoadAndValidateConfig(logger)

	var fixedToday core.Date
	if *date != "" {
		d, err := core.ParseDate(*date)
		if err != nil {
			logger.Error("Invalid -date flag", log.FieldError, err, "date", *date)
			os.Exit(2)
		}
		fixedToday = d
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" && !*dryRun {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing in SQLite-only mode", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized - materialized transactions will reach the ledger-worker")
		}
	}

	ledger := services.NewLedger(repo, publisher, cfg.DashboardCacheTTL)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	opts := func() services.RunOptions {
		today := fixedToday
		if today.IsZero() {
			today = core.Today()
		}
		return services.RunOptions{Today: today, DryRun: *dryRun, UserID: core.UserID(*user)}
	}

	if *once {
		if err := runOnce(ctx, logger, ledger.Processor, opts()); err != nil {
			os.Exit(1)
		}
		return
	}

	runLoop(ctx, logger, cfg, ledger.Processor, opts)
	logger.Info("Recurring-worker shutdown complete")
}

func runLoop(ctx context.Context, logger *log.Logger, cfg *config.Config, processor *services.RecurringProcessor, opts func() services.RunOptions) {
	logger.Info("Recurring processor configured", "interval", cfg.RecurringInterval, "sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	_ = runOnce(ctx, logger, processor, opts())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := runOnce(ctx, logger, processor, opts()); err == nil {
				logger.Debug("Next recurring pass scheduled", "next_check", now.Add(cfg.RecurringInterval).Format("15:04:05"))
			}
		}
	}
}

func runOnce(ctx context.Context, logger *log.Logger, processor *services.RecurringProcessor, opts services.RunOptions) error {
	report, err := processor.Run(ctx, opts)
	if err != nil {
		logger.Error("Recurring pass failed", log.FieldError, err, "today", opts.Today.String())
		return err
	}

	logger.Info("Recurring pass complete",
		"run_id", report.RunID,
		"today", report.Today.String(),
		"dry_run", report.DryRun,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"emitted", report.Emitted,
		log.FieldDuration, report.FinishedAt.Sub(report.StartedAt).Milliseconds())
	for _, f := range report.Failures() {
		logger.Warn("Recurring template failed",
			"template_id", f.TemplateID,
			log.FieldUserID, string(f.UserID),
			log.FieldError, f.Error)
	}
	return nil
}
