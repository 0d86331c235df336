package core

import (
	"errors"
	"testing"
	"time"
)

func TestCurrentPeriod(t *testing.T) {
	p := CurrentPeriod(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	if p.Year != 2025 || p.Month != 12 {
		t.Fatalf("CurrentPeriod = %+v", p)
	}
	if p.String() != "2025-12" {
		t.Fatalf("String() = %q", p.String())
	}
}

func TestSelector(t *testing.T) {
	s := NewSelector(Period{Year: 2025, Month: 1})
	s.NextYear()
	s.NextYear()
	if s.Period().Year != 2027 {
		t.Errorf("Year = %d, want 2027", s.Period().Year)
	}
	for i := 0; i < 5; i++ {
		s.PrevYear()
	}
	if s.Period().Year != 2022 {
		t.Errorf("Year = %d, want 2022", s.Period().Year)
	}
	s.SetMonth(12)
	if got := s.Period(); got != (Period{Year: 2022, Month: 12}) {
		t.Errorf("Period = %+v", got)
	}
	s.SetYear(1999)
	if s.Period().Year != 1999 || s.Period().Month != 12 {
		t.Errorf("Period = %+v", s.Period())
	}
}

func TestPeriodContainsAndValidate(t *testing.T) {
	p := Period{Year: 2024, Month: 2}
	if !p.Contains(NewDate(2024, 2, 29)) {
		t.Error("expected leap day to be contained")
	}
	if p.Contains(NewDate(2024, 3, 1)) || p.Contains(NewDate(2023, 2, 1)) {
		t.Error("unexpected containment")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (Period{Year: 2024, Month: 0}).Validate(); err == nil {
		t.Error("month 0 should be invalid")
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-02")
	if err != nil || p != (Period{Year: 2025, Month: 2}) {
		t.Fatalf("ParsePeriod = %+v, %v", p, err)
	}
	if got := p.String(); got != "2025-02" {
		t.Errorf("String = %q", got)
	}
	for _, s := range []string{"", "2025-13", "2025/02", "2025-2-1"} {
		if _, err := ParsePeriod(s); !errors.Is(err, ErrValidation) {
			t.Errorf("ParsePeriod(%q) err = %v", s, err)
		}
	}
}
