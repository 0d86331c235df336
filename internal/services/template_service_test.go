package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/store"
	"budgetbook/internal/store/memory"
)

func TestTemplateService_Create(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	svc := NewTemplateService(st, st)
	svc.now = clock

	tpl, err := svc.CreateTemplate(ctx, TemplateInput{
		Description: "rent",
		Amount:      core.Money{Units: 700000},
		Category:    "생활비",
		Day:         31,
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if tpl.ID == "" || tpl.Active == nil || !*tpl.Active {
		t.Errorf("new template should be stored and active: %+v", tpl)
	}
	if tpl.StartYear != 2025 || tpl.StartMonth != 4 {
		t.Errorf("start period should default to now, got %d-%d", tpl.StartYear, tpl.StartMonth)
	}
	if !tpl.CreatedAt.Equal(fixedNow) {
		t.Errorf("CreatedAt = %v", tpl.CreatedAt)
	}
}

func TestTemplateService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	st := memory.New([]string{"생활비"})
	svc := NewTemplateService(st, st)

	base := TemplateInput{Description: "rent", Amount: core.Money{Units: 1}, Category: "생활비", Day: 1}
	tests := []struct {
		name   string
		mutate func(*TemplateInput)
		want   error
	}{
		{"unknown category", func(in *TemplateInput) { in.Category = "pets" }, core.ErrUnknownCategory},
		{"day zero", func(in *TemplateInput) { in.Day = 0 }, core.ErrInvalidDay},
		{"day 32", func(in *TemplateInput) { in.Day = 32 }, core.ErrInvalidDay},
		{"month 13", func(in *TemplateInput) { in.StartMonth = 13 }, core.ErrInvalidMonth},
		{"no amount", func(in *TemplateInput) { in.Amount = core.Money{} }, core.ErrInvalidAmount},
		{"no description", func(in *TemplateInput) { in.Description = "" }, core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			if _, err := svc.CreateTemplate(ctx, in); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	list, _ := st.ListTemplates(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid templates were stored: %+v", list)
	}
}

func TestTemplateService_ToggleAndDelete(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	svc := NewTemplateService(st, st)
	legacy := newTemplate(t, st, "legacy", 5, nil, 0)

	got, err := svc.ToggleTemplate(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("ToggleTemplate: %v", err)
	}
	if got.IsActive() {
		t.Error("a template without a flag counts as active, so toggling switches it off")
	}
	got, _ = svc.ToggleTemplate(ctx, legacy.ID)
	if !got.IsActive() {
		t.Error("second toggle should switch it back on")
	}

	if _, err := svc.ToggleTemplate(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ToggleTemplate(missing) = %v", err)
	}
	if err := svc.DeleteTemplate(ctx, legacy.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if err := svc.DeleteTemplate(ctx, legacy.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteTemplate = %v", err)
	}
}

func TestTemplateService_DeleteKeepsEntries(t *testing.T) {
	ctx := context.Background()
	st := memory.New(nil)
	tpl := newTemplate(t, st, "gym", 3, core.Bool(true), 0)
	m := NewMaterializer(st, NewLedgerService(st, nil), MaterializerConfig{})
	if _, err := m.Run(ctx, core.Period{Year: 2025, Month: 2}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := NewTemplateService(st, st).DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	entries, _ := st.ListEntries(ctx)
	if len(entries) != 1 || entries[0].TemplateID != tpl.ID {
		t.Fatalf("materialized entries should survive template deletion: %+v", entries)
	}
}

func TestTemplateService_ListOrder(t *testing.T) {
	st := memory.New(nil)
	newTemplate(t, st, "b", 1, nil, time.Hour)
	newTemplate(t, st, "a", 1, nil, 0)
	list, err := NewTemplateService(st, st).ListTemplates(context.Background())
	if err != nil {
		t.Fatalf("ListTemplates: %v", err)
	}
	if len(list) != 2 || list[0].Description != "a" {
		t.Fatalf("templates should be oldest first: %+v", list)
	}
}
