package http

import (
	"encoding/json"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/services"
)

// amount accepts a JSON number or a string such as "12,000".
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amount(n.String())
	return nil
}

func (a amount) money() (core.Money, error) {
	return core.ParseAmount(string(a))
}

type createEntryRequest struct {
	Date        string `json:"date" validate:"required,isodate"`
	Description string `json:"description" validate:"required,notblank,max=200"`
	Amount      amount `json:"amount" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=income expense"`
	SubType     string `json:"sub_type" validate:"required_if=Type expense,omitempty,oneof=fixed variable none"`
	Category    string `json:"category" validate:"max=50"`
}

func (r createEntryRequest) input() (services.EntryInput, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return services.EntryInput{}, err
	}
	m, err := r.Amount.money()
	if err != nil {
		return services.EntryInput{}, err
	}
	return services.EntryInput{
		Date:        date,
		Description: r.Description,
		Amount:      m,
		Type:        core.EntryType(r.Type),
		SubType:     core.SubType(r.SubType),
		Category:    r.Category,
	}, nil
}

type createTemplateRequest struct {
	Description string `json:"description" validate:"required,notblank,max=200"`
	Amount      amount `json:"amount" validate:"required"`
	Category    string `json:"category" validate:"max=50"`
	Day         int    `json:"day" validate:"required,min=1,max=31"`
	StartYear   int    `json:"start_year" validate:"omitempty,min=1900,max=9999"`
	StartMonth  int    `json:"start_month" validate:"omitempty,min=1,max=12"`
}

func (r createTemplateRequest) input() (services.TemplateInput, error) {
	m, err := r.Amount.money()
	if err != nil {
		return services.TemplateInput{}, err
	}
	return services.TemplateInput{
		Description: r.Description,
		Amount:      m,
		Category:    r.Category,
		Day:         r.Day,
		StartYear:   r.StartYear,
		StartMonth:  r.StartMonth,
	}, nil
}

type addCategoryRequest struct {
	Label string `json:"label" validate:"required,notblank,max=50"`
}

type moveCategoryRequest struct {
	Index     *int   `json:"index" validate:"required,min=0"`
	Direction string `json:"direction" validate:"required,oneof=left right"`
}

type selectionRequest struct {
	Entry    string `json:"entry"`
	Template string `json:"template"`
}

type materializeRequest struct {
	Year  int `json:"year" validate:"omitempty,min=1900,max=9999"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
}

type entryResponse struct {
	ID          string    `json:"id"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	SubType     string    `json:"sub_type"`
	Category    string    `json:"category"`
	Color       string    `json:"color"`
	TemplateID  string    `json:"template_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID,
		Date:        e.Date.String(),
		Description: e.Description,
		Amount:      e.Amount.Units,
		Type:        string(e.Type),
		SubType:     string(e.SubType),
		Category:    e.Category,
		Color:       core.ColorOf(e.Category),
		TemplateID:  e.TemplateID,
		CreatedAt:   e.CreatedAt,
	}
}

func toEntryResponses(entries []core.Entry) []entryResponse {
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e)
	}
	return out
}

type templateResponse struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Day         int       `json:"day"`
	StartYear   int       `json:"start_year"`
	StartMonth  int       `json:"start_month"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTemplateResponse(t core.Template) templateResponse {
	return templateResponse{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount.Units,
		Category:    t.Category,
		Day:         t.Day,
		StartYear:   t.StartYear,
		StartMonth:  t.StartMonth,
		Active:      t.IsActive(),
		CreatedAt:   t.CreatedAt,
	}
}

type categoryItem struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type selectionResponse struct {
	Entry    string `json:"entry"`
	Template string `json:"template"`
}

type categoriesResponse struct {
	Categories []categoryItem    `json:"categories"`
	Selection  selectionResponse `json:"selection"`
}

type summaryResponse struct {
	TotalIncome     int64 `json:"total_income"`
	TotalExpense    int64 `json:"total_expense"`
	FixedExpense    int64 `json:"fixed_expense"`
	VariableExpense int64 `json:"variable_expense"`
	TotalSavings    int64 `json:"total_savings"`
	Balance         int64 `json:"balance"`
}

type shareResponse struct {
	Category   string  `json:"category"`
	Amount     int64   `json:"amount"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

type overviewResponse struct {
	Period    string          `json:"period"`
	Year      int             `json:"year"`
	Month     int             `json:"month"`
	Summary   summaryResponse `json:"summary"`
	Breakdown []shareResponse `json:"breakdown"`
	Entries   []entryResponse `json:"entries"`
}

func toOverviewResponse(ov core.PeriodOverview) overviewResponse {
	s := ov.Summary
	resp := overviewResponse{
		Period: ov.Period.String(),
		Year:   ov.Period.Year,
		Month:  ov.Period.Month,
		Summary: summaryResponse{
			TotalIncome:     s.TotalIncome.Units,
			TotalExpense:    s.TotalExpense.Units,
			FixedExpense:    s.FixedExpense.Units,
			VariableExpense: s.VariableExpense.Units,
			TotalSavings:    s.TotalSavings.Units,
			Balance:         s.Balance().Units,
		},
		Breakdown: make([]shareResponse, len(ov.Breakdown)),
		Entries:   toEntryResponses(ov.Entries),
	}
	for i, b := range ov.Breakdown {
		resp.Breakdown[i] = shareResponse{
			Category:   b.Category,
			Amount:     b.Amount.Units,
			Percentage: b.Percentage,
			Color:      core.ColorOf(b.Category),
		}
	}
	return resp
}

type batchResponse struct {
	Period    string          `json:"period"`
	Requested int             `json:"requested"`
	Created   int             `json:"created"`
	Skipped   int             `json:"skipped"`
	Failed    int             `json:"failed"`
	Entries   []entryResponse `json:"entries"`
	Errors    []string        `json:"errors,omitempty"`
}

func toBatchResponse(res services.BatchResult, batchErr *services.BatchError) batchResponse {
	resp := batchResponse{
		Period:    res.Period.String(),
		Requested: res.Requested,
		Created:   len(res.Created),
		Skipped:   len(res.Skipped),
		Failed:    res.Failed,
		Entries:   toEntryResponses(res.Created),
	}
	if batchErr != nil {
		for _, err := range batchErr.Errs {
			resp.Errors = append(resp.Errors, err.Error())
		}
	}
	return resp
}

type queuedResponse struct {
	RequestID string `json:"request_id"`
	Period    string `json:"period"`
	Status    string `json:"status"`
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}
