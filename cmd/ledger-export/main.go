// Command ledger-export writes one period of the ledger to a CSV file or to
// the configured Google spreadsheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"budgetbook/internal/backend"
	"budgetbook/internal/cli"
	"budgetbook/internal/core"
	"budgetbook/internal/export"
	"budgetbook/internal/export/sheets"
	applog "budgetbook/internal/log"
	"budgetbook/internal/services"
)

func main() {
	now := core.CurrentPeriod(time.Now())
	year := flag.Int("year", now.Year, "year to export")
	month := flag.Int("month", now.Month, "month to export (1-12)")
	out := flag.String("out", "", "CSV output path; defaults to budgetbook_YYYY_MM.csv, - for stdout")
	toSheets := flag.Bool("sheets", false, "write to GOOGLE_SPREADSHEET_ID instead of a CSV file")
	flag.Parse()

	if err := cli.LoadEnvFile(); err != nil {
		fmt.Fprintln(os.Stderr, "ignoring .env file:", err)
	}
	logger := cli.SetupLogger("ledger-export", os.Getenv("LOG_LEVEL")).WithComponent(applog.ComponentExport)
	cfg := cli.MustLoadConfig(logger)

	sel := core.NewSelector(now)
	sel.SetYear(*year)
	sel.SetMonth(*month)
	p := sel.Period()
	if err := p.Validate(); err != nil {
		logger.Error("Invalid period", applog.FieldError, err, applog.FieldPeriod, p.String())
		os.Exit(2)
	}

	// The export only reads; no broker is needed.
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	backendCfg.AMQPURL = ""

	ctx := applog.NewContext(context.Background(), logger)
	be, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer be.Cleanup()

	entries, err := services.NewLedgerService(be.Store, nil).EntriesForPeriod(ctx, p)
	if err != nil {
		logger.Error("Failed to read ledger", applog.FieldError, err)
		os.Exit(1)
	}

	if *toSheets {
		err = exportSheets(ctx, cfg.GoogleSpreadsheetID, p, entries)
	} else {
		err = exportCSV(*out, p, entries)
	}
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		logger.Warn("Nothing to export", applog.FieldPeriod, p.String())
	case err != nil:
		logger.Error("Export failed", applog.FieldError, err, applog.FieldPeriod, p.String())
		be.Cleanup()
		os.Exit(1)
	default:
		logger.Info("Export complete", applog.FieldPeriod, p.String(), "rows", len(entries), applog.FieldOperation, applog.OpExport)
	}
}

func exportCSV(path string, p core.Period, entries []core.Entry) error {
	if path == "" {
		path = export.FileName(p)
	}
	if path == "-" {
		return export.WriteCSV(os.Stdout, entries)
	}
	if len(entries) == 0 {
		return export.ErrNothingToExport
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return writeAndClose(f, entries)
}

// writeAndClose reports a failed close too; for a file that is where a lost
// flush shows up.
func writeAndClose(wc io.WriteCloser, entries []core.Entry) error {
	err := export.WriteCSV(wc, entries)
	if cerr := wc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("close export file: %w", cerr)
	}
	return err
}

func exportSheets(ctx context.Context, spreadsheetID string, p core.Period, entries []core.Entry) error {
	x, err := sheets.NewFromEnv(ctx, spreadsheetID)
	if err != nil {
		return err
	}
	_, err = x.Export(ctx, p, entries)
	return err
}
