package http

import (
	"context"
	"sync"

	"budgetbook/internal/core"
	applog "budgetbook/internal/log"
	"budgetbook/internal/store"
)

// registrySource is the part of the category service the selection needs.
type registrySource interface {
	Registry(ctx context.Context) (*core.Registry, error)
	Subscribe(fn func(store.Change)) (unsubscribe func())
}

// selectionState keeps the picked entry and template categories valid across
// registry changes.
type selectionState struct {
	mu    sync.Mutex
	sel   core.Selection
	src   registrySource
	unsub func()
}

func newSelectionState(ctx context.Context, src registrySource) (*selectionState, error) {
	s := &selectionState{src: src}
	r, err := src.Registry(ctx)
	if err != nil {
		return nil, err
	}
	s.sel = core.Selection{}.Reconcile(r)
	s.unsub = src.Subscribe(func(c store.Change) {
		if c.Collection == store.Categories {
			s.refresh(context.Background())
		}
	})
	return s, nil
}

func (s *selectionState) refresh(ctx context.Context) {
	r, err := s.src.Registry(ctx)
	if err != nil {
		applog.FromContext(ctx).Warn("Could not reconcile category selection", applog.FieldError, err)
		return
	}
	s.mu.Lock()
	s.sel = s.sel.Reconcile(r)
	s.mu.Unlock()
}

func (s *selectionState) get() core.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// set stores sel after reconciling it with r, so unknown labels fall back to
// the default category.
func (s *selectionState) set(sel core.Selection, r *core.Registry) core.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = sel.Reconcile(r)
	return s.sel
}

func (s *selectionState) close() {
	if s.unsub != nil {
		s.unsub()
	}
}
