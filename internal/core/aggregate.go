package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds the totals for a set of entries.
type Summary struct {
	TotalIncome     Money
	TotalExpense    Money
	FixedExpense    Money
	VariableExpense Money
	TotalSavings    Money
}

// Balance is income minus expense; it may be negative.
func (s Summary) Balance() Money {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// CategoryShare is one row of the expense breakdown.
type CategoryShare struct {
	Category   string
	Amount     Money
	Percentage float64 // share of total expense, 0-100
}

// PeriodOverview is everything the dashboard shows for one period.
type PeriodOverview struct {
	Period    Period
	Entries   []Entry
	Summary   Summary
	Breakdown []CategoryShare
}

var hundred = decimal.NewFromInt(100)

// FilterPeriod keeps the entries dated in year/month (1-12), most recent first.
// Entries on the same day keep their input order.
func FilterPeriod(entries []Entry, year, month int) []Entry {
	out := make([]Entry, 0)
	for _, e := range entries {
		if e.Date.Year() == year && e.Date.Month() == month {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	return out
}

// Summarize totals entries in one pass. Every non-income entry counts as
// expense; expense that is not fixed counts as variable.
func Summarize(entries []Entry) Summary {
	var s Summary
	for _, e := range entries {
		if e.Type == Income {
			s.TotalIncome = s.TotalIncome.Add(e.Amount)
			continue
		}
		s.TotalExpense = s.TotalExpense.Add(e.Amount)
		if e.Category == SavingsCategory {
			s.TotalSavings = s.TotalSavings.Add(e.Amount)
		}
		if e.SubType == Fixed {
			s.FixedExpense = s.FixedExpense.Add(e.Amount)
		} else {
			s.VariableExpense = s.VariableExpense.Add(e.Amount)
		}
	}
	return s
}

// Breakdown groups expense entries by category, largest first. Categories with
// equal amounts keep the order in which they first appear. An empty slice is
// returned when there is no expense.
func Breakdown(entries []Entry) []CategoryShare {
	var (
		order []string
		sums  = map[string]int64{}
		total int64
	)
	for _, e := range entries {
		if e.Type != Expense {
			continue
		}
		if _, ok := sums[e.Category]; !ok {
			order = append(order, e.Category)
		}
		sums[e.Category] += e.Amount.Units
		total += e.Amount.Units
	}
	if total == 0 {
		return []CategoryShare{}
	}

	dTotal := decimal.NewFromInt(total)
	shares := make([]CategoryShare, 0, len(order))
	for _, cat := range order {
		amt := sums[cat]
		pct := decimal.NewFromInt(amt).Mul(hundred).Div(dTotal)
		shares = append(shares, CategoryShare{
			Category:   cat,
			Amount:     Money{Units: amt},
			Percentage: pct.InexactFloat64(),
		})
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.Units > shares[j].Amount.Units
	})
	return shares
}

// BuildOverview filters entries to p and reduces them.
func BuildOverview(entries []Entry, p Period) PeriodOverview {
	filtered := FilterPeriod(entries, p.Year, p.Month)
	return PeriodOverview{
		Period:    p,
		Entries:   filtered,
		Summary:   Summarize(filtered),
		Breakdown: Breakdown(filtered),
	}
}
