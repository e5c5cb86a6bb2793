// Package cmdutil provides shared flags and helpers for taxsync commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/taxsync"
	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/cmd/output"
	"github.com/agentstation/taxsync/internal/config"
	"github.com/agentstation/taxsync/pkg/reconcile"
)

// DirFlags holds the directory flags shared by every reconciling command.
type DirFlags struct {
	Source    string
	Derived   string
	Extension string
}

// AddDirFlags adds --source, --derived, and --extension to cmd.
func AddDirFlags(cmd *cobra.Command) *DirFlags {
	flags := &DirFlags{}

	cmd.Flags().StringVarP(&flags.Source, "source", "s", "",
		"Taxonomy directory (default from config, then \"taxonomy\")")
	cmd.Flags().StringVarP(&flags.Derived, "derived", "d", "",
		"Detection directory (default from config, then \"detection\")")
	cmd.Flags().StringVar(&flags.Extension, "extension", "",
		"File extension of written detection records")

	return flags
}

// Apply overrides cfg with the flags set on cmd.
func (f *DirFlags) Apply(cmd *cobra.Command, cfg config.Sync) config.Sync {
	if cmd.Flags().Changed("source") {
		cfg.SourceDir = f.Source
	}
	if cmd.Flags().Changed("derived") {
		cfg.DerivedDir = f.Derived
	}
	if cmd.Flags().Changed("extension") {
		cfg.SetExtension(f.Extension)
	}
	return cfg
}

// SyncOptions translates cfg into library options.
func SyncOptions(appCtx appcontext.Interface, cfg config.Sync) []taxsync.Option {
	opts := []taxsync.Option{
		taxsync.WithLogger(appCtx.Logger()),
		taxsync.WithExtension(cfg.Extension),
		taxsync.WithSourcePattern(cfg.SourcePattern),
		taxsync.WithDerivedPattern(cfg.DerivedPattern),
		taxsync.WithLock(cfg.Lock),
		taxsync.WithDryRun(cfg.DryRun),
	}
	if cfg.LockFile != "" {
		opts = append(opts, taxsync.WithLockFile(cfg.LockFile))
	}
	return opts
}

// PrintResult writes result in the configured output format.
func PrintResult(appCtx appcontext.Interface, result *reconcile.Result) error {
	if result == nil {
		return nil
	}
	format := output.DetectFormat(appCtx.OutputFormat())
	formatter := output.NewFormatter(format, appCtx.NoColor())
	return formatter.Format(appCtx.Stdout(), output.NewReport(result))
}
