package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetbook/internal/backend"
	"budgetbook/internal/cache"
	"budgetbook/internal/cli"
	"budgetbook/internal/core"
	apphttp "budgetbook/internal/http"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Warn("Ignoring .env file", applog.FieldError, err)
	}

	logger := cli.SetupLogger("budgetbook", os.Getenv("LOG_LEVEL"))
	cfg := cli.MustLoadConfig(logger)

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

	overviews := cache.NewLRUCache[core.PeriodOverview](cfg.OverviewCacheSize, cfg.OverviewCacheTTL)
	caches := cache.NewManager()
	caches.Register(overviews)
	caches.StartCleanup(cfg.OverviewCacheTTL)

	ledger := services.NewLedgerService(be.Store, be.Publisher())
	deps := apphttp.Deps{
		Ledger:     ledger,
		Templates:  services.NewTemplateService(be.Store, be.Store),
		Categories: services.NewCategoryService(be.Store),
		Dashboard:  services.NewDashboardService(be.Store, be.Store, overviews),
		Materializer: services.NewMaterializer(be.Store, ledger, services.MaterializerConfig{
			Concurrency: cfg.MaterializeConcurrency,
			Guard:       cfg.MaterializeGuard,
		}),
		Logger:       logger,
		RateLimitRPM: cfg.RateLimitRPM,
	}
	if be.AMQP != nil {
		deps.Queue = be.AMQP
	}

	srv, err := apphttp.NewServer(context.Background(), ":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting budgetbook server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", be.AMQP != nil,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
