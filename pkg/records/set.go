package records

import "sort"

// Set is an id-keyed snapshot that remembers discovery order.
// Putting an existing id replaces its value in place; the last file read wins.
type Set[T any] struct {
	order []string
	items map[string]T
}

// SourceSet maps taxonomy ids to their records.
type SourceSet = Set[SourceRecord]

// DerivedSet maps detection ids to their file locations.
type DerivedSet = Set[DerivedEntry]

// NewSet returns an empty set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{items: make(map[string]T)}
}

// Put stores value under id.
func (s *Set[T]) Put(id string, value T) {
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = value
}

// Get returns the value stored under id.
func (s *Set[T]) Get(id string) (T, bool) {
	v, ok := s.items[id]
	return v, ok
}

// Has reports whether id is present.
func (s *Set[T]) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

// Len returns the number of ids.
func (s *Set[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// IDs returns the ids in discovery order.
func (s *Set[T]) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// SortedIDs returns the ids in lexical order.
func (s *Set[T]) SortedIDs() []string {
	ids := s.IDs()
	sort.Strings(ids)
	return ids
}
