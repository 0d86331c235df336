package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/store"
	"budgetbook/internal/store/memory"
)

var fixedNow = time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

// flakyLedger fails CreateEntry for the listed descriptions and tracks how
// many submissions run at once.
type flakyLedger struct {
	store.LedgerStore

	failFor  map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *flakyLedger) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failFor[e.Description] {
		return core.Entry{}, fmt.Errorf("create entry: %w", store.ErrUnavailable)
	}
	return f.LedgerStore.CreateEntry(ctx, e)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// countingCategories counts SaveCategories calls.
type countingCategories struct {
	store.CategoryStore
	saves int
}

func (c *countingCategories) SaveCategories(ctx context.Context, labels []string) error {
	c.saves++
	return c.CategoryStore.SaveCategories(ctx, labels)
}

func newTemplate(t *testing.T, s *memory.Store, desc string, day int, active *bool, createdOffset time.Duration) core.Template {
	t.Helper()
	tpl, err := s.CreateTemplate(context.Background(), core.Template{
		Description: desc,
		Amount:      core.Money{Units: 1000},
		Category:    "생활비",
		Day:         day,
		StartYear:   2025,
		StartMonth:  1,
		Active:      active,
		CreatedAt:   fixedNow.Add(createdOffset),
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	return tpl
}
