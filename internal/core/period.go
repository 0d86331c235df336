package core

import (
	"fmt"
	"time"
)

// Period is a (year, month) scope; Month is 1-12.
type Period struct {
	Year  int
	Month int
}

// CurrentPeriod returns the period containing now.
func CurrentPeriod(now time.Time) Period {
	return Period{Year: now.Year(), Month: int(now.Month())}
}

// String returns YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Selector holds the period currently being viewed.
type Selector struct {
	period Period
}

// NewSelector starts at p.
func NewSelector(p Period) *Selector {
	return &Selector{period: p}
}

// Period returns the selected period.
func (s *Selector) Period() Period {
	return s.period
}

// NextYear moves forward one year. There is no upper bound.
func (s *Selector) NextYear() {
	s.period.Year++
}

// PrevYear moves back one year. There is no lower bound.
func (s *Selector) PrevYear() {
	s.period.Year--
}

// SetYear selects year directly.
func (s *Selector) SetYear(year int) {
	s.period.Year = year
}

// SetMonth selects month (1-12). Callers only offer valid months, so the
// value is not checked here.
func (s *Selector) SetMonth(month int) {
	s.period.Month = month
}

// ParsePeriod parses YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Period{Year: t.Year(), Month: int(t.Month())}, nil
}
