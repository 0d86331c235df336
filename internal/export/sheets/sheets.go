package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"budgetbook/internal/core"
	"budgetbook/internal/export"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// spreadsheet is the subset of the Sheets API the exporter needs.
type spreadsheet interface {
	TabTitles(ctx context.Context) ([]string, error)
	AddTab(ctx context.Context, title string) error
	Clear(ctx context.Context, rng string) error
	Write(ctx context.Context, rng string, values [][]any) error
}

// Exporter writes a period's ledger into a tab named YYYY-MM.
type Exporter struct {
	api spreadsheet
}

// NewFromEnv creates an exporter for spreadsheetID. Service account
// credentials (GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS) are preferred; without them a user token
// saved by oauth-init is used.
func NewFromEnv(ctx context.Context, spreadsheetID string) (*Exporter, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	var opts []goption.ClientOption
	creds, err := credentialsFromEnv()
	switch {
	case err == nil:
		opts = append(opts, goption.WithCredentialsJSON(creds), goption.WithScopes(gsheet.SpreadsheetsScope))
	case errors.Is(err, errNoServiceAccount):
		opt, oauthErr := oauthClientOption(ctx)
		if oauthErr != nil {
			return nil, fmt.Errorf("%w; %w", err, oauthErr)
		}
		opts = append(opts, opt)
	default:
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID)
	return &Exporter{api: &serviceAPI{svc: svc, id: spreadsheetID}}, nil
}

var errNoServiceAccount = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")

func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errNoServiceAccount
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// TabName is the tab a period is written to.
func TabName(p core.Period) string {
	return p.String()
}

// Values converts the export rows to sheet cells. Amounts stay numeric.
func Values(entries []core.Entry) [][]any {
	rows := export.Rows(entries)
	out := make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		if i > 0 {
			cells[len(cells)-1] = entries[i-1].Amount.Units
		}
		out[i] = cells
	}
	return out
}

// Export replaces the contents of the period's tab with entries, creating
// the tab when missing. It returns the written range.
func (x *Exporter) Export(ctx context.Context, p core.Period, entries []core.Entry) (string, error) {
	if len(entries) == 0 {
		return "", export.ErrNothingToExport
	}
	tab := TabName(p)

	titles, err := x.api.TabTitles(ctx)
	if err != nil {
		return "", fmt.Errorf("list tabs: %w", err)
	}
	if !contains(titles, tab) {
		if err := x.api.AddTab(ctx, tab); err != nil {
			return "", fmt.Errorf("add tab %s: %w", tab, err)
		}
	}

	if err := x.api.Clear(ctx, tab+"!A:E"); err != nil {
		return "", fmt.Errorf("clear %s: %w", tab, err)
	}
	values := Values(entries)
	rng := fmt.Sprintf("%s!A1:E%d", tab, len(values))
	if err := x.api.Write(ctx, rng, values); err != nil {
		return "", fmt.Errorf("write %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Ledger exported to Google Sheets", "period", p.String(), "rows", len(entries), "range", rng)
	return rng, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type serviceAPI struct {
	svc *gsheet.Service
	id  string
}

func (a *serviceAPI) TabTitles(ctx context.Context) ([]string, error) {
	ss, err := a.svc.Spreadsheets.Get(a.id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	return titles, nil
}

func (a *serviceAPI) AddTab(ctx context.Context, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	_, err := a.svc.Spreadsheets.BatchUpdate(a.id, req).Context(ctx).Do()
	return err
}

func (a *serviceAPI) Clear(ctx context.Context, rng string) error {
	_, err := a.svc.Spreadsheets.Values.Clear(a.id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a *serviceAPI) Write(ctx context.Context, rng string, values [][]any) error {
	vr := &gsheet.ValueRange{Values: values}
	_, err := a.svc.Spreadsheets.Values.Update(a.id, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}
