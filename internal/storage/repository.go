package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetbook/internal/core"
	"budgetbook/internal/store"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	categoriesKey = "categories"

	// Fixed width so timestamps sort lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

type SQLiteRepository struct {
	store.Broadcaster
	db *sql.DB
}

var (
	_ store.Store           = (*SQLiteRepository)(nil)
	_ store.LedgerVersioner = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY during concurrent batch inserts.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, store.ErrUnavailable, err)
}

// ListEntries implements store.LedgerStore
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, description, amount, type, sub_type, category, template_id, created_at
		FROM entries
		ORDER BY created_at, rowid`)
	if err != nil {
		return nil, unavailable("list entries", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		var (
			e                       core.Entry
			date, created, typ, sub string
			amount                  any
			templateID              sql.NullString
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &amount, &typ, &sub, &e.Category, &templateID, &created); err != nil {
			return nil, unavailable("scan entry", err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			slog.WarnContext(ctx, "Skipping entry with unreadable date", "id", e.ID, "date", date)
			continue
		}
		e.Date = d
		e.Amount = core.CoerceAmount(amount)
		e.Type = core.EntryType(typ)
		e.SubType = core.SubType(sub)
		e.TemplateID = templateID.String
		e.CreatedAt = parseTimestamp(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate entries", err)
	}
	return out, nil
}

// CreateEntry implements store.LedgerStore
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, date, description, amount, type, sub_type, category, template_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Date.String(), e.Description, e.Amount.Units, string(e.Type), string(e.SubType),
		e.Category, nullString(e.TemplateID), formatTimestamp(e.CreatedAt))
	if err != nil {
		return core.Entry{}, unavailable("create entry", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", e.ID,
		"date", e.Date.String(),
		"type", e.Type,
		"amount", e.Amount.Units,
		"template_id", e.TemplateID)

	r.Publish(store.Change{Collection: store.Entries, ID: e.ID})
	return e, nil
}

// DeleteEntry implements store.LedgerStore
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id string) error {
	if err := r.deleteByID(ctx, "entries", id); err != nil {
		return err
	}
	r.Publish(store.Change{Collection: store.Entries, ID: id})
	return nil
}

// LedgerVersion implements store.LedgerVersioner. Triggers on the entries
// table bump it, so writes from other processes on the same file count too.
func (r *SQLiteRepository) LedgerVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, `SELECT version FROM ledger_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, unavailable("read ledger version", err)
	}
	return v, nil
}

// ListTemplates implements store.TemplateSource. Oldest first.
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.Template, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, amount, category, day, start_year, start_month, is_active, created_at
		FROM templates
		ORDER BY created_at, rowid`)
	if err != nil {
		return nil, unavailable("list templates", err)
	}
	defer rows.Close()

	var out []core.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, unavailable("scan template", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate templates", err)
	}
	return out, nil
}

// GetTemplate implements store.TemplateSource
func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.Template, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, description, amount, category, day, start_year, start_month, is_active, created_at
		FROM templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Template{}, store.ErrNotFound
	}
	if err != nil {
		return core.Template{}, unavailable("get template", err)
	}
	return t, nil
}

// CreateTemplate implements store.TemplateSource
func (r *SQLiteRepository) CreateTemplate(ctx context.Context, t core.Template) (core.Template, error) {
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	var active sql.NullBool
	if t.Active != nil {
		active = sql.NullBool{Bool: *t.Active, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO templates (id, description, amount, category, day, start_year, start_month, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Description, t.Amount.Units, t.Category, t.Day, t.StartYear, t.StartMonth,
		active, formatTimestamp(t.CreatedAt))
	if err != nil {
		return core.Template{}, unavailable("create template", err)
	}

	slog.InfoContext(ctx, "Template saved to SQLite",
		"id", t.ID,
		"description", t.Description,
		"amount", t.Amount.Units,
		"day", t.Day)

	r.Publish(store.Change{Collection: store.Templates, ID: t.ID})
	return t, nil
}

// SetTemplateActive implements store.TemplateSource
func (r *SQLiteRepository) SetTemplateActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE templates SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return unavailable("update template", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	r.Publish(store.Change{Collection: store.Templates, ID: id})
	return nil
}

// DeleteTemplate implements store.TemplateSource. Entries created from the
// template are kept.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	if err := r.deleteByID(ctx, "templates", id); err != nil {
		return err
	}
	r.Publish(store.Change{Collection: store.Templates, ID: id})
	return nil
}

// LoadCategories implements store.CategoryStore
func (r *SQLiteRepository) LoadCategories(ctx context.Context) ([]string, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, categoriesKey).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return append([]string(nil), core.DefaultCategories...), nil
	}
	if err != nil {
		return nil, unavailable("load categories", err)
	}

	labels := []string{}
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, unavailable("decode categories", err)
	}
	return labels, nil
}

// SaveCategories implements store.CategoryStore
func (r *SQLiteRepository) SaveCategories(ctx context.Context, labels []string) error {
	if labels == nil {
		labels = []string{}
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, categoriesKey, string(raw))
	if err != nil {
		return unavailable("save categories", err)
	}
	r.Publish(store.Change{Collection: store.Categories})
	return nil
}

func (r *SQLiteRepository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return unavailable("delete from "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete from "+table, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(s scanner) (core.Template, error) {
	var (
		t       core.Template
		amount  any
		active  sql.NullBool
		created string
	)
	if err := s.Scan(&t.ID, &t.Description, &amount, &t.Category, &t.Day, &t.StartYear, &t.StartMonth, &active, &created); err != nil {
		return core.Template{}, err
	}
	t.Amount = core.CoerceAmount(amount)
	if active.Valid {
		t.Active = core.Bool(active.Bool)
	}
	t.CreatedAt = parseTimestamp(created)
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
