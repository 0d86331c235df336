package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"budgetbook/internal/core"
	"budgetbook/internal/store"

	"github.com/google/uuid"
)

// Store keeps everything in process. It is safe for concurrent use.
type Store struct {
	store.Broadcaster

	mu        sync.Mutex
	cats      []string
	catsSaved bool
	entries   []core.Entry
	templates []core.Template
}

var _ store.Store = (*Store)(nil)

// New returns an empty store. A nil cats leaves the category document unset,
// so LoadCategories reports the defaults.
func New(cats []string) *Store {
	s := &Store{}
	if cats != nil {
		s.cats = core.NewRegistry(cats).Labels()
		s.catsSaved = true
	}
	return s
}

// NewFromFiles seeds the store from base/seed_categories.txt and
// base/seed_entries.txt. Missing files are ignored.
func NewFromFiles(base string) *Store {
	cats, ok := readLines(filepath.Join(base, "seed_categories.txt"))
	if !ok {
		cats = nil
	} else if cats == nil {
		cats = []string{}
	}
	s := New(cats)

	lines, _ := readLines(filepath.Join(base, "seed_entries.txt"))
	for _, line := range lines {
		if e, ok := parseSeedEntry(line); ok {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListEntries(_ context.Context) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Entry(nil), s.entries...), nil
}

func (s *Store) CreateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Entries, ID: e.ID})
	return e, nil
}

func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	i := indexOf(len(s.entries), func(i int) bool { return s.entries[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Entries, ID: id})
	return nil
}

// ListTemplates returns templates oldest first.
func (s *Store) ListTemplates(_ context.Context) ([]core.Template, error) {
	s.mu.Lock()
	out := make([]core.Template, len(s.templates))
	for i, t := range s.templates {
		out[i] = copyTemplate(t)
	}
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (core.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(len(s.templates), func(i int) bool { return s.templates[i].ID == id })
	if i < 0 {
		return core.Template{}, store.ErrNotFound
	}
	return copyTemplate(s.templates[i]), nil
}

func (s *Store) CreateTemplate(_ context.Context, t core.Template) (core.Template, error) {
	if err := t.Validate(); err != nil {
		return core.Template{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t = copyTemplate(t)
	s.mu.Lock()
	s.templates = append(s.templates, t)
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Templates, ID: t.ID})
	return copyTemplate(t), nil
}

func (s *Store) SetTemplateActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	i := indexOf(len(s.templates), func(i int) bool { return s.templates[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.templates[i].Active = core.Bool(active)
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Templates, ID: id})
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	i := indexOf(len(s.templates), func(i int) bool { return s.templates[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	s.templates = append(s.templates[:i], s.templates[i+1:]...)
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Templates, ID: id})
	return nil
}

func (s *Store) LoadCategories(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.catsSaved {
		return append([]string(nil), core.DefaultCategories...), nil
	}
	return append([]string{}, s.cats...), nil
}

func (s *Store) SaveCategories(_ context.Context, labels []string) error {
	s.mu.Lock()
	s.cats = append([]string{}, labels...)
	s.catsSaved = true
	s.mu.Unlock()
	s.Publish(store.Change{Collection: store.Categories})
	return nil
}

func copyTemplate(t core.Template) core.Template {
	if t.Active != nil {
		t.Active = core.Bool(*t.Active)
	}
	return t
}

func indexOf(n int, match func(int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

// readLines returns the non-blank, non-comment lines of path and whether the
// file could be opened.
func readLines(path string) ([]string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, true
}

// parseSeedEntry reads "date|type|subtype|category|amount|description".
// Malformed amounts become zero; lines without a valid date or type are skipped.
func parseSeedEntry(line string) (core.Entry, bool) {
	parts := strings.SplitN(line, "|", 6)
	if len(parts) != 6 {
		return core.Entry{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	date, err := core.ParseDate(parts[0])
	if err != nil {
		return core.Entry{}, false
	}
	e := core.Entry{
		ID:          uuid.NewString(),
		Date:        date,
		Type:        core.EntryType(parts[1]),
		SubType:     core.SubType(parts[2]),
		Category:    parts[3],
		Amount:      core.CoerceAmount(parts[4]),
		Description: parts[5],
	}
	switch e.Type {
	case core.Income:
		e.SubType = core.NoSub
		e.Category = core.IncomeCategory
	case core.Expense:
	default:
		return core.Entry{}, false
	}
	return e, true
}
