// Package sync implements the sync command.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/taxsync"
	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/cmd/cmdutil"
)

// NewCommand creates the sync command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	var (
		dirs   *cmdutil.DirFlags
		dryRun bool
		noLock bool
	)

	cmd := &cobra.Command{
		Use:     "sync",
		GroupID: "core",
		Short:   "Reconcile the detection directory with the taxonomy",
		Args:    cobra.NoArgs,
		Long: `Sync brings the detection directory in line with the taxonomy directory.

Every taxonomy record whose id has no detection record gets a default one
({id, keywords: [id]}). Every detection record whose id is no longer in the
taxonomy is deleted. Records present on both sides are left untouched.

Running sync twice in a row is safe: the second run reports no changes.`,
		Example: `  taxsync sync                                  # Use configured directories
  taxsync sync -s data/taxonomy -d data/detection
  taxsync sync --dry-run                        # Preview the change log
  taxsync sync -o json                          # Machine-readable report`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := dirs.Apply(cmd, appCtx.SyncConfig())
			if cmd.Flags().Changed("dry-run") {
				cfg.DryRun = dryRun
			}
			if noLock {
				cfg.Lock = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			result, err := taxsync.Sync(cmd.Context(), cfg.SourceDir, cfg.DerivedDir, cmdutil.SyncOptions(appCtx, cfg)...)
			if printErr := cmdutil.PrintResult(appCtx, result); printErr != nil && err == nil {
				err = printErr
			}
			return err
		},
	}

	dirs = cmdutil.AddDirFlags(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the change log without touching the detection directory")
	cmd.Flags().BoolVar(&noLock, "no-lock", false, "Do not take the detection directory lock")

	return cmd
}
