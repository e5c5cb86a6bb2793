package differ

import (
	"fmt"
	"strings"
)

// Action is the kind of mutation applied to the derived directory.
type Action string

const (
	// Added indicates a default derived record was written.
	Added Action = "Added"
	// Removed indicates a derived record file was deleted.
	Removed Action = "Removed"
)

// Change is a single entry of the change log.
type Change struct {
	Action Action `json:"action" yaml:"action"`
	ID     string `json:"id" yaml:"id"`
}

// String renders the change as a log line, e.g. "Added: algo-3".
func (c Change) String() string {
	return fmt.Sprintf("%s: %s", c.Action, c.ID)
}

// Changeset is the planned set of mutations.
type Changeset struct {
	Added     []string // Ids to create in the derived directory, sorted
	Removed   []string // Ids to delete from the derived directory, sorted
	Unchanged int      // Ids present on both sides
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return !c.HasChanges()
}

// Total returns the number of planned mutations.
func (c *Changeset) Total() int {
	return len(c.Added) + len(c.Removed)
}

// Changes returns the planned mutations in apply order: additions, then removals.
func (c *Changeset) Changes() []Change {
	changes := make([]Change, 0, c.Total())
	for _, id := range c.Added {
		changes = append(changes, Change{Action: Added, ID: id})
	}
	for _, id := range c.Removed {
		changes = append(changes, Change{Action: Removed, ID: id})
	}
	return changes
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Changes: %d added, %d removed, %d unchanged\n",
		len(c.Added), len(c.Removed), c.Unchanged)
	for _, change := range c.Changes() {
		fmt.Fprintf(&sb, "  %s\n", change)
	}
	return sb.String()
}
