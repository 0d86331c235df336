package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"

	Fixed    SubType = "fixed"
	Variable SubType = "variable"
	NoSub    SubType = "none"
)

// Well-known category labels.
const (
	// IncomeCategory is stamped on every income entry; it is not part of the registry.
	IncomeCategory  = "수입"
	SavingsCategory = "저축 및 투자"
)

// DefaultCategories is used when no category list has been stored yet.
var DefaultCategories = []string{"생활비", "식비", "저축 및 투자", "여가생활", "자동차 유지비", "기타"}

type (
	EntryType string
	SubType   string

	Date struct {
		time.Time
	}

	Money struct {
		Units int64 // smallest currency unit
	}

	// Entry is a single ledger record. Entries are never updated after creation.
	Entry struct {
		ID          string
		Date        Date
		Description string
		Amount      Money
		Type        EntryType
		SubType     SubType
		Category    string
		TemplateID  string // set for entries materialized from a template
		CreatedAt   time.Time
	}

	// Template is a recurring expense pattern.
	Template struct {
		ID          string
		Description string
		Amount      Money
		Category    string
		Day         int // 1-31, clamped per month when materialized
		StartYear   int // stored, not enforced
		StartMonth  int // stored, not enforced
		Active      *bool
		CreatedAt   time.Time
	}
)

// ErrValidation is the parent of every validation error below.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidDay        = fmt.Errorf("%w: invalid day", ErrValidation)
	ErrInvalidMonth      = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidAmount     = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyDescription  = fmt.Errorf("%w: empty description", ErrValidation)
	ErrInvalidType       = fmt.Errorf("%w: invalid entry type", ErrValidation)
	ErrInvalidSubType    = fmt.Errorf("%w: invalid entry subtype", ErrValidation)
	ErrEmptyCategory     = fmt.Errorf("%w: empty category", ErrValidation)
	ErrDuplicateCategory = fmt.Errorf("%w: duplicate category", ErrValidation)
	ErrUnknownCategory   = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrInvalidDate       = fmt.Errorf("%w: invalid date", ErrValidation)
)

// ErrNoActiveTemplates is reported when a batch is requested but every template is switched off.
var ErrNoActiveTemplates = errors.New("no active templates")

const dateLayout = "2006-01-02"

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String returns the ISO form.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Units <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NewEntry builds an entry from user input, normalising the income fields:
// income always carries SubType none and the income category.
func NewEntry(date Date, description string, amount Money, typ EntryType, sub SubType, category string, now time.Time) (Entry, error) {
	e := Entry{
		Date:        date,
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Type:        typ,
		SubType:     sub,
		Category:    strings.TrimSpace(category),
		CreatedAt:   now.UTC(),
	}
	if typ == Income {
		e.SubType = NoSub
		e.Category = IncomeCategory
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e Entry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	switch e.Type {
	case Income:
		if e.SubType != NoSub {
			return ErrInvalidSubType
		}
	case Expense:
		if e.SubType != Fixed && e.SubType != Variable {
			return ErrInvalidSubType
		}
	default:
		return ErrInvalidType
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// IsActive reports whether the template takes part in materialization.
// Templates stored before the flag existed have no value and count as active.
func (t Template) IsActive() bool {
	return t.Active == nil || *t.Active
}

func (t Template) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.Day < 1 || t.Day > 31 {
		return ErrInvalidDay
	}
	if t.StartMonth < 1 || t.StartMonth > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Bool returns a pointer to b, for the optional Active flag.
func Bool(b bool) *bool {
	return &b
}
