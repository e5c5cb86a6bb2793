package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/taxsync/pkg/differ"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/records"
)

// Result represents the outcome of a reconciliation run
type Result struct {
	// RunID identifies the run in logs and reports
	RunID string

	// SourceDir and DerivedDir are the directories that were reconciled
	SourceDir  string
	DerivedDir string

	// DryRun indicates no mutation was attempted
	DryRun bool

	// Planned contains every change the diff produced, in apply order
	Planned []differ.Change

	// Changes contains the changes that were applied (or would be, in a dry run)
	Changes []differ.Change

	// Errors contains one WriteError or DeleteError per failed change
	Errors []error

	// Stats about the loaded record sets
	Stats Stats

	// StartTime when the run started
	StartTime time.Time

	// Duration of the run
	Duration time.Duration
}

// Stats contains statistics about a reconciliation run
type Stats struct {
	SourceFiles    int `json:"source_files" yaml:"source_files"`
	SourceRecords  int `json:"source_records" yaml:"source_records"`
	SourceSkipped  int `json:"source_skipped" yaml:"source_skipped"`
	DerivedFiles   int `json:"derived_files" yaml:"derived_files"`
	DerivedRecords int `json:"derived_records" yaml:"derived_records"`
	DerivedSkipped int `json:"derived_skipped" yaml:"derived_skipped"`
	Unchanged      int `json:"unchanged" yaml:"unchanged"`

	// ParseErrors from both directories, one per malformed file
	ParseErrors []error `json:"-" yaml:"-"`
}

// newStats summarizes the loaded sets. Record counts are distinct ids.
func newStats(source *records.SourceSet, derived *records.DerivedSet, sourceStats, derivedStats records.LoadStats, changeset *differ.Changeset) Stats {
	parseErrors := make([]error, 0, len(sourceStats.ParseErrors)+len(derivedStats.ParseErrors))
	parseErrors = append(parseErrors, sourceStats.ParseErrors...)
	parseErrors = append(parseErrors, derivedStats.ParseErrors...)

	return Stats{
		SourceFiles:    sourceStats.Files,
		SourceRecords:  source.Len(),
		SourceSkipped:  sourceStats.Skipped,
		DerivedFiles:   derivedStats.Files,
		DerivedRecords: derived.Len(),
		DerivedSkipped: derivedStats.Skipped,
		Unchanged:      changeset.Unchanged,
		ParseErrors:    parseErrors,
	}
}

// Log returns the change log, one "Added: <id>" or "Removed: <id>" line per change.
func (r *Result) Log() []string {
	log := make([]string, 0, len(r.Changes))
	for _, change := range r.Changes {
		log = append(log, change.String())
	}
	return log
}

// Added returns the number of applied additions.
func (r *Result) Added() int {
	return r.count(differ.Added)
}

// Removed returns the number of applied removals.
func (r *Result) Removed() int {
	return r.count(differ.Removed)
}

func (r *Result) count(action differ.Action) int {
	n := 0
	for _, change := range r.Changes {
		if change.Action == action {
			n++
		}
	}
	return n
}

// HasChanges returns true if any change was applied, or planned in a dry run.
func (r *Result) HasChanges() bool {
	return len(r.Changes) > 0
}

// HasErrors returns true if any change failed
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// IsSuccess returns true if every planned change was applied.
func (r *Result) IsSuccess() bool {
	return !r.HasErrors() && len(r.Changes) == len(r.Planned)
}

// Err returns the aggregated SyncError, or nil when no change failed.
func (r *Result) Err() error {
	if syncErr := errors.NewSyncError(r.Errors); syncErr != nil {
		return syncErr
	}
	return nil
}

// Summary returns a human-readable summary of the result
func (r *Result) Summary() string {
	var sb strings.Builder
	if r.DryRun {
		sb.WriteString("Dry run: ")
	}

	if !r.HasChanges() && !r.HasErrors() {
		sb.WriteString("no changes")
	} else {
		verb := "applied"
		if r.DryRun {
			verb = "planned"
		}
		fmt.Fprintf(&sb, "%d added, %d removed %s", r.Added(), r.Removed(), verb)
	}

	fmt.Fprintf(&sb, ", %d unchanged", r.Stats.Unchanged)
	if skipped := r.Stats.SourceSkipped + r.Stats.DerivedSkipped; skipped > 0 {
		fmt.Fprintf(&sb, ", %d file(s) skipped", skipped)
	}
	if r.HasErrors() {
		fmt.Fprintf(&sb, ", %d failed", len(r.Errors))
	}
	return sb.String()
}
