package core

import "strings"

// Direction selects the neighbour used by MoveAdjacent.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// Registry is the ordered, duplicate-free list of expense categories.
// Order is meaningful: it drives display and the default selection.
type Registry struct {
	labels []string
}

// NewRegistry builds a registry from a stored list. Blank labels and repeats
// are dropped; the first occurrence keeps its position.
func NewRegistry(labels []string) *Registry {
	r := &Registry{labels: make([]string, 0, len(labels))}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		r.labels = append(r.labels, l)
	}
	return r
}

// Labels returns a copy of the ordered labels.
func (r *Registry) Labels() []string {
	return append([]string(nil), r.labels...)
}

// Len returns the number of categories.
func (r *Registry) Len() int {
	return len(r.labels)
}

// Contains reports whether label is registered (exact, case-sensitive match).
func (r *Registry) Contains(label string) bool {
	return r.indexOf(label) >= 0
}

// Add appends label to the end of the list.
func (r *Registry) Add(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyCategory
	}
	if r.Contains(label) {
		return ErrDuplicateCategory
	}
	r.labels = append(r.labels, label)
	return nil
}

// Remove deletes label and reports whether it was present. Entries and
// templates that still reference the label are left alone.
func (r *Registry) Remove(label string) bool {
	i := r.indexOf(label)
	if i < 0 {
		return false
	}
	r.labels = append(r.labels[:i], r.labels[i+1:]...)
	return true
}

// MoveAdjacent swaps the label at index with its neighbour in dir.
// Boundaries and out-of-range indexes are a no-op; the result reports whether
// anything moved.
func (r *Registry) MoveAdjacent(index int, dir Direction) bool {
	if index < 0 || index >= len(r.labels) {
		return false
	}
	var j int
	switch dir {
	case Left:
		j = index - 1
	case Right:
		j = index + 1
	default:
		return false
	}
	if j < 0 || j >= len(r.labels) {
		return false
	}
	r.labels[index], r.labels[j] = r.labels[j], r.labels[index]
	return true
}

// DefaultLabel is the first registered label, or the first default category
// when the registry is empty.
func (r *Registry) DefaultLabel() string {
	if len(r.labels) > 0 {
		return r.labels[0]
	}
	return DefaultCategories[0]
}

// Reconcile returns selected if it is still registered, otherwise DefaultLabel.
func (r *Registry) Reconcile(selected string) string {
	if r.Contains(selected) {
		return selected
	}
	return r.DefaultLabel()
}

func (r *Registry) indexOf(label string) int {
	for i, l := range r.labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Selection holds the category values currently picked for new entries and
// new templates.
type Selection struct {
	Entry    string
	Template string
}

// Reconcile resets any selected value that is no longer registered.
func (s Selection) Reconcile(r *Registry) Selection {
	return Selection{
		Entry:    r.Reconcile(s.Entry),
		Template: r.Reconcile(s.Template),
	}
}
