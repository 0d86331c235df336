package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/store"
)

// TemplateInput describes a new recurring expense. Zero StartYear/StartMonth
// default to the current period.
type TemplateInput struct {
	Description string
	Amount      core.Money
	Category    string
	Day         int
	StartYear   int
	StartMonth  int
}

// TemplateService manages recurring expense templates
type TemplateService struct {
	templates  store.TemplateSource
	categories store.CategoryStore
	now        func() time.Time
}

func NewTemplateService(templates store.TemplateSource, categories store.CategoryStore) *TemplateService {
	return &TemplateService{
		templates:  templates,
		categories: categories,
		now:        time.Now,
	}
}

// CreateTemplate validates in and stores an active template. The category must
// be registered at creation time; later registry changes do not affect it.
func (s *TemplateService) CreateTemplate(ctx context.Context, in TemplateInput) (core.Template, error) {
	now := s.now().UTC()
	current := core.CurrentPeriod(now)
	t := core.Template{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    strings.TrimSpace(in.Category),
		Day:         in.Day,
		StartYear:   in.StartYear,
		StartMonth:  in.StartMonth,
		Active:      core.Bool(true),
		CreatedAt:   now,
	}
	if t.StartYear == 0 {
		t.StartYear = current.Year
	}
	if t.StartMonth == 0 {
		t.StartMonth = current.Month
	}
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}

	labels, err := s.categories.LoadCategories(ctx)
	if err != nil {
		return core.Template{}, fmt.Errorf("load categories: %w", err)
	}
	if !core.NewRegistry(labels).Contains(t.Category) {
		return core.Template{}, fmt.Errorf("%w: %q", core.ErrUnknownCategory, t.Category)
	}

	created, err := s.templates.CreateTemplate(ctx, t)
	if err != nil {
		return core.Template{}, fmt.Errorf("save template: %w", err)
	}

	slog.InfoContext(ctx, "Created recurring template",
		"id", created.ID,
		"description", created.Description,
		"amount", created.Amount.Units,
		"day", created.Day)
	return created, nil
}

// ToggleTemplate flips the active flag and returns the updated template.
// A template without a flag counts as active and is switched off.
func (s *TemplateService) ToggleTemplate(ctx context.Context, id string) (core.Template, error) {
	t, err := s.templates.GetTemplate(ctx, id)
	if err != nil {
		return core.Template{}, fmt.Errorf("get template %s: %w", id, err)
	}
	active := !t.IsActive()
	if err := s.templates.SetTemplateActive(ctx, id, active); err != nil {
		return core.Template{}, fmt.Errorf("update template %s: %w", id, err)
	}
	t.Active = core.Bool(active)
	return t, nil
}

// DeleteTemplate removes the template. Entries already created from it stay.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.DeleteTemplate(ctx, id); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	return nil
}

// ListTemplates returns templates oldest first.
func (s *TemplateService) ListTemplates(ctx context.Context) ([]core.Template, error) {
	list, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}
