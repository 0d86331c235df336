package services

import (
	"context"
	"errors"
	"testing"

	"budgetbook/internal/amqp"
	"budgetbook/internal/core"
	"budgetbook/internal/store"
	"budgetbook/internal/store/memory"
)

func TestLedgerService_CreateEntry(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(memory.New(nil), pub)
	svc.now = clock

	e, err := svc.CreateEntry(ctx, EntryInput{
		Date:        core.NewDate(2025, 4, 1),
		Description: " salary ",
		Amount:      core.Money{Units: 3000000},
		Type:        core.Income,
		SubType:     core.Fixed,
		Category:    "식비",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if e.ID == "" || e.SubType != core.NoSub || e.Category != core.IncomeCategory || e.Description != "salary" {
		t.Errorf("income not normalised: %+v", e)
	}
	if !e.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, fixedNow)
	}
	if pub.count() != 1 || pub.events[0].Action != amqp.EntryCreated || pub.events[0].EntryID != e.ID {
		t.Errorf("unexpected events: %+v", pub.events)
	}
}

func TestLedgerService_CreateEntryValidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	pub := &recordingPublisher{}
	svc := NewLedgerService(st, pub)

	tests := []struct {
		name string
		in   EntryInput
		want error
	}{
		{"zero amount", EntryInput{Date: core.NewDate(2025, 1, 1), Description: "x", Type: core.Expense, SubType: core.Fixed, Category: "c"}, core.ErrInvalidAmount},
		{"blank description", EntryInput{Date: core.NewDate(2025, 1, 1), Description: "  ", Amount: core.Money{Units: 1}, Type: core.Expense, SubType: core.Fixed, Category: "c"}, core.ErrEmptyDescription},
		{"expense without subtype", EntryInput{Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Units: 1}, Type: core.Expense, SubType: core.NoSub, Category: "c"}, core.ErrInvalidSubType},
		{"missing date", EntryInput{Description: "x", Amount: core.Money{Units: 1}, Type: core.Expense, SubType: core.Fixed, Category: "c"}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEntry(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("err = %v should be a validation error", err)
			}
		})
	}
	entries, _ := st.ListEntries(ctx)
	if len(entries) != 0 || pub.count() != 0 {
		t.Fatalf("nothing should be written: %d entries, %d events", len(entries), pub.count())
	}
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(memory.New(nil), pub)
	_, err := svc.CreateEntry(context.Background(), EntryInput{
		Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Units: 1},
		Type: core.Expense, SubType: core.Variable, Category: "c",
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
}

func TestLedgerService_DeleteEntry(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewLedgerService(memory.New(nil), pub)

	if err := svc.DeleteEntry(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("DeleteEntry(missing) = %v, want ErrNotFound", err)
	}
	e, _ := svc.CreateEntry(ctx, EntryInput{
		Date: core.NewDate(2025, 1, 1), Description: "x", Amount: core.Money{Units: 1},
		Type: core.Expense, SubType: core.Variable, Category: "c",
	})
	if err := svc.DeleteEntry(ctx, e.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if pub.count() != 2 || pub.events[1].Action != amqp.EntryDeleted {
		t.Fatalf("unexpected events: %+v", pub.events)
	}
	if pub.events[1].Period != "2025-01" || pub.events[1].EntryID != e.ID {
		t.Errorf("delete event = %+v, want period 2025-01", pub.events[1])
	}
}

func TestLedgerService_EntriesForPeriod(t *testing.T) {
	ctx := context.Background()
	svc := NewLedgerService(memory.New(nil), nil)
	for _, d := range []core.Date{core.NewDate(2025, 3, 1), core.NewDate(2025, 4, 2), core.NewDate(2025, 4, 20)} {
		if _, err := svc.CreateEntry(ctx, EntryInput{Date: d, Description: "x", Amount: core.Money{Units: 1}, Type: core.Expense, SubType: core.Fixed, Category: "c"}); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
	}
	got, err := svc.EntriesForPeriod(ctx, core.Period{Year: 2025, Month: 4})
	if err != nil {
		t.Fatalf("EntriesForPeriod: %v", err)
	}
	if len(got) != 2 || got[0].Date.Day() != 20 {
		t.Fatalf("unexpected entries: %+v", got)
	}
	if _, err := svc.EntriesForPeriod(ctx, core.Period{Year: 2025, Month: 13}); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("invalid month = %v", err)
	}
}
