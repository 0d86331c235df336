package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/store"

	"golang.org/x/sync/errgroup"
)

// BatchResult reports what a materialization run did.
type BatchResult struct {
	Period    core.Period
	Requested int          // drafts produced from active templates
	Created   []core.Entry // in template order
	Skipped   []string     // template IDs already present in the period (guard only)
	Failed    int
}

// BatchError is returned when some submissions failed. Entries that were
// created stay committed.
type BatchError struct {
	Period    core.Period
	Requested int
	Created   int
	Failed    int
	Errs      []error
}

func (e *BatchError) Error() string {
	msg := fmt.Sprintf("materialize %s: %d of %d entries failed", e.Period, e.Failed, e.Requested)
	if len(e.Errs) > 0 {
		msg += ": " + e.Errs[0].Error()
	}
	return msg
}

func (e *BatchError) Unwrap() []error {
	return e.Errs
}

// MaterializerConfig tunes batch submission.
type MaterializerConfig struct {
	// Concurrency bounds in-flight submissions; 0 or less means unbounded.
	Concurrency int
	// Guard skips templates that already produced an entry in the period.
	Guard bool
}

// Materializer turns active templates into ledger entries for a period.
type Materializer struct {
	templates store.TemplateSource
	ledger    *LedgerService
	cfg       MaterializerConfig
	now       func() time.Time
}

func NewMaterializer(templates store.TemplateSource, ledger *LedgerService, cfg MaterializerConfig) *Materializer {
	return &Materializer{
		templates: templates,
		ledger:    ledger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run materializes every active template into p and submits the drafts
// concurrently. It returns once every submission has finished. Failed
// submissions are not retried and successful ones are not rolled back; the
// failures are reported as a *BatchError alongside the partial result.
//
// Without the guard, running twice for the same period creates two batches.
func (m *Materializer) Run(ctx context.Context, p core.Period) (BatchResult, error) {
	res := BatchResult{Period: p}
	if err := p.Validate(); err != nil {
		return res, err
	}

	templates, err := m.templates.ListTemplates(ctx)
	if err != nil {
		return res, fmt.Errorf("list templates: %w", err)
	}
	drafts, err := core.Materialize(templates, p.Year, p.Month, m.now())
	if err != nil {
		return res, err
	}
	res.Requested = len(drafts)

	if m.cfg.Guard {
		drafts, res.Skipped, err = m.dropExisting(ctx, drafts, p)
		if err != nil {
			return res, err
		}
	}

	created := make([]core.Entry, len(drafts))
	errs := make([]error, len(drafts))

	// errgroup only bounds the fan-out. Submissions record their own errors
	// and return nil, so one failure never cancels the rest.
	g := new(errgroup.Group)
	limit := m.cfg.Concurrency
	if limit <= 0 {
		limit = -1
	}
	g.SetLimit(limit)
	for i, d := range drafts {
		g.Go(func() error {
			e, err := m.ledger.Submit(ctx, d)
			if err != nil {
				errs[i] = fmt.Errorf("template %s: %w", d.TemplateID, err)
				return nil
			}
			created[i] = e
			return nil
		})
	}
	_ = g.Wait()

	var failures []error
	for i := range drafts {
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		res.Created = append(res.Created, created[i])
	}
	res.Failed = len(failures)

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogBatch(ctx, p, res.Requested, len(res.Created), len(res.Skipped), res.Failed)

	if len(failures) > 0 {
		return res, &BatchError{
			Period:    p,
			Requested: res.Requested,
			Created:   len(res.Created),
			Failed:    res.Failed,
			Errs:      failures,
		}
	}
	return res, nil
}

func (m *Materializer) dropExisting(ctx context.Context, drafts []core.Entry, p core.Period) ([]core.Entry, []string, error) {
	entries, err := m.ledger.EntriesForPeriod(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.TemplateID != "" {
			seen[e.TemplateID] = struct{}{}
		}
	}

	kept := make([]core.Entry, 0, len(drafts))
	var skipped []string
	for _, d := range drafts {
		if _, ok := seen[d.TemplateID]; ok && d.TemplateID != "" {
			skipped = append(skipped, d.TemplateID)
			continue
		}
		kept = append(kept, d)
	}
	return kept, skipped, nil
}

// IsPartialFailure reports whether err is a *BatchError.
func IsPartialFailure(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
