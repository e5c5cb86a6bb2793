package output

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/agentstation/taxsync/pkg/differ"
	"github.com/agentstation/taxsync/pkg/errors"
	"github.com/agentstation/taxsync/pkg/reconcile"
)

// Status values of report entries.
const (
	StatusApplied = "applied"
	StatusPlanned = "planned"
	StatusFailed  = "failed"
)

// Report is the printable form of a reconciliation result.
type Report struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	SourceDir  string          `json:"source_dir" yaml:"source_dir"`
	DerivedDir string          `json:"derived_dir" yaml:"derived_dir"`
	DryRun     bool            `json:"dry_run" yaml:"dry_run"`
	Changes    []Entry         `json:"changes" yaml:"changes"`
	Stats      reconcile.Stats `json:"stats" yaml:"stats"`
	Duration   string          `json:"duration" yaml:"duration"`
	Summary    string          `json:"summary" yaml:"summary"`
}

// Entry is one applied, planned, or failed change.
type Entry struct {
	Action differ.Action `json:"action" yaml:"action"`
	ID     string        `json:"id" yaml:"id"`
	Status string        `json:"status" yaml:"status"`
	Path   string        `json:"path,omitempty" yaml:"path,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewReport builds a Report from result.
func NewReport(result *reconcile.Result) *Report {
	status := StatusApplied
	if result.DryRun {
		status = StatusPlanned
	}

	entries := make([]Entry, 0, len(result.Changes)+len(result.Errors))
	for _, change := range result.Changes {
		entries = append(entries, Entry{Action: change.Action, ID: change.ID, Status: status})
	}
	for _, err := range result.Errors {
		entries = append(entries, failureEntry(err))
	}

	return &Report{
		RunID:      result.RunID,
		SourceDir:  result.SourceDir,
		DerivedDir: result.DerivedDir,
		DryRun:     result.DryRun,
		Changes:    entries,
		Stats:      result.Stats,
		Duration:   result.Duration.Round(time.Millisecond).String(),
		Summary:    result.Summary(),
	}
}

func failureEntry(err error) Entry {
	var writeErr *errors.WriteError
	if errors.As(err, &writeErr) {
		return Entry{Action: differ.Added, ID: writeErr.ID, Status: StatusFailed, Path: writeErr.Path, Error: writeErr.Err.Error()}
	}
	var deleteErr *errors.DeleteError
	if errors.As(err, &deleteErr) {
		return Entry{Action: differ.Removed, ID: deleteErr.ID, Status: StatusFailed, Path: deleteErr.Path, Error: deleteErr.Err.Error()}
	}
	return Entry{Status: StatusFailed, Error: err.Error()}
}

// WriteText writes the change log followed by failures and a summary line.
func (r *Report) WriteText(w io.Writer, colorize bool) error {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	failed := color.New(color.FgYellow, color.Bold)
	faint := color.New(color.Faint)
	if !colorize {
		for _, c := range []*color.Color{added, removed, failed, faint} {
			c.DisableColor()
		}
	}

	for _, e := range r.Changes {
		line := differ.Change{Action: e.Action, ID: e.ID}.String()
		var err error
		switch {
		case e.Status == StatusFailed:
			_, err = failed.Fprintf(w, "Failed %s (%s)\n", line, e.Error)
		case e.Action == differ.Added:
			_, err = added.Fprintln(w, line)
		default:
			_, err = removed.Fprintln(w, line)
		}
		if err != nil {
			return err
		}
	}

	_, err := faint.Fprintln(w, r.Summary)
	return err
}

// TableData implements Tabular.
func (r *Report) TableData() Data {
	data := Data{
		Headers:         []string{Header("action"), Header("id"), Header("status"), Header("error")},
		ColumnAlignment: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft},
	}
	for _, e := range r.Changes {
		data.Rows = append(data.Rows, []string{string(e.Action), e.ID, e.Status, e.Error})
	}
	if len(data.Rows) == 0 {
		data.Rows = append(data.Rows, []string{"-", "-", fmt.Sprintf("%d unchanged", r.Stats.Unchanged), ""})
	}
	return data
}
