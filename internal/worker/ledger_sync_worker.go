package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/export"
	applog "budgetbook/internal/log"
)

// LedgerSyncWorker mirrors the ledger into an external copy: every ledger
// event re-exports the whole period the entry belongs to.
type LedgerSyncWorker struct {
	ledger   PeriodReader
	exporter PeriodExporter
	logger   *applog.Logger
	now      func() time.Time

	mu     sync.Mutex
	synced map[core.Period]time.Time // start of the last successful export
}

func NewLedgerSyncWorker(ledger PeriodReader, exporter PeriodExporter, logger *applog.Logger) *LedgerSyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &LedgerSyncWorker{
		ledger:   ledger,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
		synced:   make(map[core.Period]time.Time),
	}
}

// HandleLedgerEvent re-exports the event's period. Events older than the last
// export of their period are already reflected and skipped, so a batch of
// materialized entries costs one export rather than one per entry.
func (w *LedgerSyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	logger := w.logger.With(applog.FieldEntryID, ev.EntryID, "action", string(ev.Action))
	if ev.Period == "" {
		logger.WarnContext(ctx, "Ledger event without period, skipping")
		return nil
	}
	p, err := core.ParsePeriod(ev.Period)
	if err != nil {
		logger.WarnContext(ctx, "Ledger event with invalid period, skipping", applog.FieldError, err)
		return nil
	}
	logger = logger.With(applog.FieldPeriod, p.String())

	if w.upToDate(p, ev.Timestamp) {
		logger.DebugContext(ctx, "Period already exported after this event")
		return nil
	}

	started := w.now()
	entries, err := w.ledger.EntriesForPeriod(ctx, p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	rng, err := w.exporter.Export(ctx, p, entries)
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		logger.InfoContext(ctx, "Period is empty, nothing to export")
	case err != nil:
		return fmt.Errorf("export %s: %w", p, err)
	default:
		logger.InfoContext(ctx, "Period exported", "range", rng, "rows", len(entries), applog.FieldOperation, applog.OpExport)
	}
	w.markSynced(p, started)
	return nil
}

func (w *LedgerSyncWorker) upToDate(p core.Period, eventAt time.Time) bool {
	if eventAt.IsZero() {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.synced[p]
	return ok && eventAt.Before(last)
}

func (w *LedgerSyncWorker) markSynced(p core.Period, at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if at.After(w.synced[p]) {
		w.synced[p] = at
	}
}
