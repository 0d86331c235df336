package core

import (
	"errors"
	"testing"
	"time"
)

func TestDaysIn(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2023, 1, 31},
		{2023, 2, 28},
		{2024, 2, 29},
		{1900, 2, 28}, // divisible by 100, not by 400
		{2000, 2, 29},
		{2025, 4, 30},
		{2025, 6, 30},
		{2025, 9, 30},
		{2025, 11, 30},
		{2025, 12, 31},
	}
	for _, tt := range tests {
		if got := DaysIn(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysIn(%d, %d) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestMaterializeClampsDay(t *testing.T) {
	now := time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC)
	tpl := []Template{{ID: "t1", Description: "rent", Amount: Money{Units: 500000}, Category: "생활비", Day: 31}}

	tests := []struct {
		name        string
		year, month int
		wantDay     int
	}{
		{"february non-leap", 2023, 2, 28},
		{"february leap", 2024, 2, 29},
		{"thirty day month", 2025, 4, 30},
		{"thirty-one day month", 2025, 1, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := Materialize(tpl, tt.year, tt.month, now)
			if err != nil {
				t.Fatalf("Materialize: %v", err)
			}
			if len(drafts) != 1 {
				t.Fatalf("got %d drafts, want 1", len(drafts))
			}
			d := drafts[0].Date
			if d.Year() != tt.year || d.Month() != tt.month || d.Day() != tt.wantDay {
				t.Errorf("date = %s, want %04d-%02d-%02d", d, tt.year, tt.month, tt.wantDay)
			}
		})
	}
}

func TestMaterializeDayWithinMonthIsKept(t *testing.T) {
	drafts, err := Materialize([]Template{{Description: "gym", Amount: Money{Units: 1}, Category: "c", Day: 15}}, 2023, 2, time.Now())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if drafts[0].Date.String() != "2023-02-15" {
		t.Errorf("date = %s, want 2023-02-15", drafts[0].Date)
	}
}

func TestMaterializeUnsetDayFallsBackToFirst(t *testing.T) {
	drafts, err := Materialize([]Template{{Description: "x", Amount: Money{Units: 1}, Category: "c"}}, 2025, 3, time.Now())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if drafts[0].Date.Day() != 1 {
		t.Errorf("day = %d, want 1", drafts[0].Date.Day())
	}
}

func TestMaterializeFiltersInactive(t *testing.T) {
	templates := []Template{
		{ID: "on", Description: "a", Amount: Money{Units: 1}, Category: "c", Day: 1, Active: Bool(true)},
		{ID: "off", Description: "b", Amount: Money{Units: 2}, Category: "c", Day: 1, Active: Bool(false)},
	}
	drafts, err := Materialize(templates, 2025, 5, time.Now())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(drafts) != 1 || drafts[0].TemplateID != "on" {
		t.Fatalf("drafts = %+v, want only the active template", drafts)
	}
}

func TestMaterializeMissingFlagIsActive(t *testing.T) {
	drafts, err := Materialize([]Template{{ID: "legacy", Description: "a", Amount: Money{Units: 1}, Category: "c", Day: 3}}, 2025, 5, time.Now())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("got %d drafts, want 1", len(drafts))
	}
}

func TestMaterializeNoActiveTemplates(t *testing.T) {
	tests := []struct {
		name      string
		templates []Template
	}{
		{"none at all", nil},
		{"all switched off", []Template{{Active: Bool(false)}, {Active: Bool(false)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drafts, err := Materialize(tt.templates, 2025, 1, time.Now())
			if !errors.Is(err, ErrNoActiveTemplates) {
				t.Fatalf("err = %v, want ErrNoActiveTemplates", err)
			}
			if drafts != nil {
				t.Fatalf("expected no drafts, got %v", drafts)
			}
		})
	}
}

func TestMaterializeDraftFields(t *testing.T) {
	now := time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	tpl := Template{ID: "t9", Description: "insurance", Amount: Money{Units: 87000}, Category: "자동차 유지비", Day: 10, StartYear: 2030, StartMonth: 12}
	drafts, err := Materialize([]Template{tpl}, 2025, 6, now)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	d := drafts[0]
	if d.ID != "" {
		t.Errorf("draft ID = %q, want empty", d.ID)
	}
	if d.Description != tpl.Description || d.Amount != tpl.Amount || d.Category != tpl.Category {
		t.Errorf("draft does not inherit template fields: %+v", d)
	}
	if d.Type != Expense || d.SubType != Fixed {
		t.Errorf("draft type = %s/%s, want expense/fixed", d.Type, d.SubType)
	}
	if d.TemplateID != "t9" {
		t.Errorf("TemplateID = %q, want t9", d.TemplateID)
	}
	if !d.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, now)
	}
	// Start period lies in the future but is not enforced.
	if d.Date.String() != "2025-06-10" {
		t.Errorf("date = %s, want 2025-06-10", d.Date)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("draft should be a valid entry: %v", err)
	}
}

func TestMaterializeIsNotIdempotent(t *testing.T) {
	templates := []Template{
		{ID: "a", Description: "a", Amount: Money{Units: 1}, Category: "c", Day: 1},
		{ID: "b", Description: "b", Amount: Money{Units: 2}, Category: "c", Day: 2},
	}
	var all []Entry
	for i := 0; i < 2; i++ {
		drafts, err := Materialize(templates, 2025, 7, time.Now())
		if err != nil {
			t.Fatalf("Materialize: %v", err)
		}
		all = append(all, drafts...)
	}
	if len(all) != 2*len(templates) {
		t.Fatalf("got %d drafts over two runs, want %d", len(all), 2*len(templates))
	}
}
