// Command ledger-sync keeps the Google spreadsheet in step with the ledger by
// consuming ledger events and re-exporting the affected period.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	"budgetbook/internal/export/sheets"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
	"budgetbook/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Warn("Ignoring .env file", applog.FieldError, err)
	}

	logger := cli.SetupLogger("ledger-sync", os.Getenv("LOG_LEVEL"))
	cfg := cli.MustLoadConfig(logger)

	if !cfg.AMQPEnabled() || cfg.GoogleSpreadsheetID == "" {
		logger.Error("ledger-sync needs AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	exporter, err := sheets.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if be.AMQP == nil {
		logger.Error("Message broker is not reachable")
		_ = be.Cleanup()
		os.Exit(1)
	}

	// Reads only; events are consumed, never published from here.
	ledger := services.NewLedgerService(be.Store, nil)
	w := worker.NewLedgerSyncWorker(ledger, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting ledger-sync",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"backend", cfg.DataBackend,
		applog.FieldOperation, applog.OpStartup)

	if err := be.AMQP.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", applog.FieldError, err)
		_ = be.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
