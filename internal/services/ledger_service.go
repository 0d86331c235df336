package services

import (
	"context"
	"fmt"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/store"
)

// EventPublisher announces ledger writes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// EntryInput is a manually entered transaction.
type EntryInput struct {
	Date        core.Date
	Description string
	Amount      core.Money
	Type        core.EntryType
	SubType     core.SubType
	Category    string
}

// LedgerService writes entries to the store and publishes ledger events
type LedgerService struct {
	ledger store.LedgerStore
	events EventPublisher
	now    func() time.Time
}

// NewLedgerService creates a ledger service. events may be nil.
func NewLedgerService(ledger store.LedgerStore, events EventPublisher) *LedgerService {
	return &LedgerService{
		ledger: ledger,
		events: events,
		now:    time.Now,
	}
}

// CreateEntry validates and normalises in, then stores it.
func (s *LedgerService) CreateEntry(ctx context.Context, in EntryInput) (core.Entry, error) {
	e, err := core.NewEntry(in.Date, in.Description, in.Amount, in.Type, in.SubType, in.Category, s.now())
	if err != nil {
		return core.Entry{}, err
	}
	return s.Submit(ctx, e)
}

// Submit stores an already built entry, such as a materialized draft.
func (s *LedgerService) Submit(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}

	created, err := s.ledger.CreateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	applog.FromContext(ctx).DebugContext(ctx, "Entry stored",
		applog.NewFields().WithEntry(created).WithOperation(applog.OpCreate).ToSlice()...)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EntryCreated, created))
	return created, nil
}

// DeleteEntry removes an entry. Corrections are delete plus create.
func (s *LedgerService) DeleteEntry(ctx context.Context, id string) error {
	deleted := core.Entry{ID: id}
	if s.events != nil {
		// Event consumers need the period of the removed entry.
		if e, ok := s.find(ctx, id); ok {
			deleted = e
		}
	}
	if err := s.ledger.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EntryDeleted, deleted))
	return nil
}

func (s *LedgerService) find(ctx context.Context, id string) (core.Entry, bool) {
	entries, err := s.ledger.ListEntries(ctx)
	if err != nil {
		return core.Entry{}, false
	}
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return core.Entry{}, false
}

// ListEntries returns every stored entry.
func (s *LedgerService) ListEntries(ctx context.Context) ([]core.Entry, error) {
	entries, err := s.ledger.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// EntriesForPeriod returns the entries of p, most recent first.
func (s *LedgerService) EntriesForPeriod(ctx context.Context, p core.Period) ([]core.Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	entries, err := s.ListEntries(ctx)
	if err != nil {
		return nil, err
	}
	return core.FilterPeriod(entries, p.Year, p.Month), nil
}

// publish never fails the caller: the entry is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Failed to publish ledger event", err,
			string(ev.Action), applog.LogFields{applog.FieldEntryID: ev.EntryID})
	}
}
