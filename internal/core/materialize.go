package core

import "time"

// DaysIn returns the number of days in the given month (1-12) of year.
func DaysIn(year, month int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay maps a template day onto a real day of the target month:
// days past the end of the month land on its last day, and unset or
// non-positive days fall back to the 1st.
func ClampDay(day, year, month int) int {
	if day < 1 {
		day = 1
	}
	if last := DaysIn(year, month); day > last {
		return last
	}
	return day
}

// Materialize turns the active templates into expense drafts dated in the
// target month. Drafts have no ID; the ledger assigns one on creation.
//
// Start year and month on the template are not consulted, and no check is made
// for entries already created for the same period: calling Materialize twice
// yields two full batches.
func Materialize(templates []Template, year, month int, now time.Time) ([]Entry, error) {
	active := make([]Template, 0, len(templates))
	for _, t := range templates {
		if t.IsActive() {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveTemplates
	}

	drafts := make([]Entry, 0, len(active))
	for _, t := range active {
		drafts = append(drafts, Entry{
			Date:        NewDate(year, month, ClampDay(t.Day, year, month)),
			Description: t.Description,
			Amount:      t.Amount,
			Type:        Expense,
			SubType:     Fixed,
			Category:    t.Category,
			TemplateID:  t.ID,
			CreatedAt:   now.UTC(),
		})
	}
	return drafts, nil
}
