// Package store defines the persistence ports used by the services.
package store

import (
	"context"
	"errors"
	"sync"

	"budgetbook/internal/core"
)

var (
	// ErrUnavailable wraps any backend failure. State is unchanged when it is returned.
	ErrUnavailable = errors.New("store unavailable")
	// ErrNotFound is returned for unknown entry or template IDs.
	ErrNotFound = errors.New("not found")
)

// Ports for persistence adapters.
type (
	// LedgerStore holds ledger entries. Entries are created and deleted, never updated.
	LedgerStore interface {
		ListEntries(ctx context.Context) ([]core.Entry, error)
		// CreateEntry assigns an ID when e has none and returns the stored entry.
		CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	TemplateSource interface {
		ListTemplates(ctx context.Context) ([]core.Template, error)
		GetTemplate(ctx context.Context, id string) (core.Template, error)
		CreateTemplate(ctx context.Context, t core.Template) (core.Template, error)
		SetTemplateActive(ctx context.Context, id string, active bool) error
		DeleteTemplate(ctx context.Context, id string) error
	}

	// CategoryStore persists the category list as a single document.
	CategoryStore interface {
		// LoadCategories returns core.DefaultCategories when nothing was ever saved.
		LoadCategories(ctx context.Context) ([]string, error)
		// SaveCategories replaces the whole list.
		SaveCategories(ctx context.Context, labels []string) error
	}

	// LedgerVersioner reports a counter that changes after every entry write,
	// including writes made by other processes sharing the backend.
	LedgerVersioner interface {
		LedgerVersion(ctx context.Context) (int64, error)
	}

	// Notifier delivers a Change after every successful write.
	Notifier interface {
		Subscribe(fn func(Change)) (unsubscribe func())
	}

	// Store is everything a backend provides.
	Store interface {
		LedgerStore
		TemplateSource
		CategoryStore
		Notifier
		Close() error
	}
)

// Collection names the data set a Change refers to.
type Collection string

const (
	Entries    Collection = "entries"
	Templates  Collection = "templates"
	Categories Collection = "categories"
)

// Change describes a committed write.
type Change struct {
	Collection Collection
	ID         string // empty for category list writes
}

// Broadcaster is an embeddable Notifier.
type Broadcaster struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Change)
}

func (b *Broadcaster) Subscribe(fn func(Change)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]func(Change))
	}
	id := b.next
	b.next++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish calls every subscriber synchronously.
func (b *Broadcaster) Publish(c Change) {
	b.mu.RLock()
	fns := make([]func(Change), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}
