// Package differ computes the identifier-level difference between the
// taxonomy and detection record sets.
//
// Only identifiers are compared. A record present on both sides is never
// inspected further, so changes to its fields never produce a change.
package differ

import "sort"

// Keyed is a set of record identifiers.
type Keyed interface {
	// Has reports whether id is present.
	Has(id string) bool
	// IDs returns every identifier in the set.
	IDs() []string
}

// Diff compares the source ids against the derived ids.
// Ids only in source are additions; ids only in derived are removals.
// Both lists are sorted lexically.
func Diff(source, derived Keyed) *Changeset {
	changeset := &Changeset{
		Added:   []string{},
		Removed: []string{},
	}

	for _, id := range source.IDs() {
		if derived.Has(id) {
			changeset.Unchanged++
			continue
		}
		changeset.Added = append(changeset.Added, id)
	}

	for _, id := range derived.IDs() {
		if !source.Has(id) {
			changeset.Removed = append(changeset.Removed, id)
		}
	}

	sort.Strings(changeset.Added)
	sort.Strings(changeset.Removed)

	return changeset
}
