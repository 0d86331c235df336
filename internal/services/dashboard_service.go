package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"budgetbook/internal/cache"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/store"
)

// DashboardService builds period overviews from a fresh ledger read. Results
// are cached per period and dropped whenever the ledger changes.
type DashboardService struct {
	ledger    store.LedgerStore
	versions  store.LedgerVersioner
	overviews cache.Cache[core.PeriodOverview]

	// mu orders cache writes against Invalidate.
	mu         sync.Mutex
	generation uint64
}

// NewDashboardService wires the cache to notifier. When ledger also reports a
// version, cached overviews are keyed by it so writes made by other processes
// are seen on the next read. Without a notifier or a version the cache is not
// used; overviews may be nil, which disables caching.
func NewDashboardService(ledger store.LedgerStore, notifier store.Notifier, overviews cache.Cache[core.PeriodOverview]) *DashboardService {
	s := &DashboardService{ledger: ledger}
	if v, ok := ledger.(store.LedgerVersioner); ok {
		s.versions = v
	}
	if overviews == nil || (notifier == nil && s.versions == nil) {
		return s
	}
	s.overviews = overviews
	if notifier != nil {
		notifier.Subscribe(func(c store.Change) {
			if c.Collection == store.Entries {
				s.Invalidate()
			}
		})
	}
	return s
}

// Overview returns the entries, summary and breakdown of p.
func (s *DashboardService) Overview(ctx context.Context, p core.Period) (core.PeriodOverview, error) {
	if err := p.Validate(); err != nil {
		return core.PeriodOverview{}, err
	}

	key, cacheable := s.cacheKey(ctx, p)
	if cacheable {
		if ov, ok := s.overviews.Get(key); ok {
			return ov, nil
		}
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	entries, err := s.ledger.ListEntries(ctx)
	if err != nil {
		return core.PeriodOverview{}, fmt.Errorf("list entries: %w", err)
	}
	ov := core.BuildOverview(entries, p)

	if cacheable {
		s.mu.Lock()
		// Skip caching when a write landed during the read.
		if s.generation == gen {
			s.overviews.Set(key, ov)
		}
		s.mu.Unlock()
	}
	return ov, nil
}

// cacheKey names the cached overview of p. With a versioned ledger the key
// carries the current version; if it cannot be read the cache is bypassed.
func (s *DashboardService) cacheKey(ctx context.Context, p core.Period) (string, bool) {
	if s.overviews == nil {
		return "", false
	}
	if s.versions == nil {
		return p.String(), true
	}
	v, err := s.versions.LedgerVersion(ctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Ledger version unavailable, skipping overview cache",
			applog.FieldError, err, slog.String(applog.FieldPeriod, p.String()))
		return "", false
	}
	return fmt.Sprintf("%s@%d", p, v), true
}

// Invalidate drops every cached overview.
func (s *DashboardService) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.overviews != nil {
		s.overviews.Purge()
	}
}
