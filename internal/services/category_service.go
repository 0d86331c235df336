package services

import (
	"context"
	"fmt"
	"sync"

	"budgetbook/internal/core"
	"budgetbook/internal/store"
)

// CategoryService applies registry mutations as whole-list replacements:
// read the stored list, change it, write it back. Concurrent writers in other
// processes race; the last write wins.
type CategoryService struct {
	store.Broadcaster

	mu   sync.Mutex
	cats store.CategoryStore
}

func NewCategoryService(s store.CategoryStore) *CategoryService {
	return &CategoryService{cats: s}
}

// Registry loads the current list.
func (s *CategoryService) Registry(ctx context.Context) (*core.Registry, error) {
	labels, err := s.cats.LoadCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return core.NewRegistry(labels), nil
}

// AddCategory appends label.
func (s *CategoryService) AddCategory(ctx context.Context, label string) (*core.Registry, error) {
	return s.mutate(ctx, func(r *core.Registry) (bool, error) {
		if err := r.Add(label); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RemoveCategory deletes label. Removing an absent label writes nothing.
func (s *CategoryService) RemoveCategory(ctx context.Context, label string) (*core.Registry, error) {
	return s.mutate(ctx, func(r *core.Registry) (bool, error) {
		return r.Remove(label), nil
	})
}

// MoveCategory swaps the label at index with its neighbour. Boundary moves
// write nothing.
func (s *CategoryService) MoveCategory(ctx context.Context, index int, dir core.Direction) (*core.Registry, error) {
	return s.mutate(ctx, func(r *core.Registry) (bool, error) {
		return r.MoveAdjacent(index, dir), nil
	})
}

func (s *CategoryService) mutate(ctx context.Context, fn func(*core.Registry) (bool, error)) (*core.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.Registry(ctx)
	if err != nil {
		return nil, err
	}
	changed, err := fn(r)
	if err != nil {
		return nil, err
	}
	if !changed {
		return r, nil
	}
	if err := s.cats.SaveCategories(ctx, r.Labels()); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}
	s.Publish(store.Change{Collection: store.Categories})
	return r, nil
}
