package worker

import (
	"context"
	"errors"
	"fmt"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

// Runner materializes the active templates into a period.
type Runner interface {
	Run(ctx context.Context, p core.Period) (services.BatchResult, error)
}

// PeriodReader lists the entries of a period.
type PeriodReader interface {
	EntriesForPeriod(ctx context.Context, p core.Period) ([]core.Entry, error)
}

// PeriodExporter mirrors a period's ledger somewhere else, such as a
// spreadsheet tab.
type PeriodExporter interface {
	Export(ctx context.Context, p core.Period, entries []core.Entry) (string, error)
}

// MaterializeWorker handles materialization requests taken off the queue.
type MaterializeWorker struct {
	runner   Runner
	ledger   PeriodReader
	exporter PeriodExporter
	logger   *applog.Logger
}

// NewMaterializeWorker creates a worker. ledger and exporter may both be nil
// to skip the export after each batch.
func NewMaterializeWorker(runner Runner, ledger PeriodReader, exporter PeriodExporter, logger *applog.Logger) *MaterializeWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MaterializeWorker{
		runner:   runner,
		ledger:   ledger,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMaterializeRequest runs one batch. A batch with no active templates
// or with partial failures is acknowledged: what was created stays and a
// retry would duplicate it. Only errors that created nothing are returned.
func (w *MaterializeWorker) HandleMaterializeRequest(ctx context.Context, req *amqp.MaterializeRequest) error {
	logger := w.logger.With(
		applog.FieldRequestID, req.RequestID,
		applog.FieldPeriod, req.Period().String(),
		applog.FieldRequestedBy, "amqp")
	ctx = applog.NewContext(ctx, logger)

	res, err := w.runner.Run(ctx, req.Period())
	switch {
	case errors.Is(err, core.ErrNoActiveTemplates):
		logger.InfoContext(ctx, "No active templates, nothing to materialize")
		return nil
	case services.IsPartialFailure(err):
		logger.WarnContext(ctx, "Materialization partially failed", applog.FieldError, err)
	case err != nil:
		return fmt.Errorf("materialize %s: %w", req.Period(), err)
	}

	if len(res.Created) > 0 {
		w.export(ctx, req.Period())
	}
	return nil
}

// export is best effort; the batch is already stored.
func (w *MaterializeWorker) export(ctx context.Context, p core.Period) {
	if w.exporter == nil || w.ledger == nil {
		return
	}
	logger := applog.FromContext(ctx)
	entries, err := w.ledger.EntriesForPeriod(ctx, p)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read period for export", applog.FieldError, err)
		return
	}
	rng, err := w.exporter.Export(ctx, p, entries)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to export period", applog.FieldError, err, applog.FieldOperation, applog.OpExport)
		return
	}
	logger.InfoContext(ctx, "Period exported", "range", rng, applog.FieldOperation, applog.OpExport)
}
