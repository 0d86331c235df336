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

	logger := cli.SetupLogger("recurring-worker", os.Getenv("LOG_LEVEL"))
	cfg := cli.MustLoadConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the recurring worker")
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

	ledger := services.NewLedgerService(be.Store, be.Publisher())
	materializer := services.NewMaterializer(be.Store, ledger, services.MaterializerConfig{
		Concurrency: cfg.MaterializeConcurrency,
		Guard:       cfg.MaterializeGuard,
	})

	var exporter worker.PeriodExporter
	if cfg.GoogleSpreadsheetID != "" {
		x, err := sheets.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Warn("Google Sheets export disabled", applog.FieldError, err)
		} else {
			exporter = x
		}
	}

	w := worker.NewMaterializeWorker(materializer, ledger, exporter, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting recurring-worker",
		"queue", cfg.AMQPQueue,
		"backend", cfg.DataBackend,
		"sheets_export", exporter != nil,
		"guard", cfg.MaterializeGuard,
		applog.FieldOperation, applog.OpStartup)

	if err := be.AMQP.ConsumeMaterializeRequests(ctx, w.HandleMaterializeRequest); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", applog.FieldError, err)
		_ = be.Cleanup()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
