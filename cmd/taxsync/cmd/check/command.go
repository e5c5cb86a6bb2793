// Package check implements the check command.
package check

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/taxsync"
	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/cmd/cmdutil"
)

// NewCommand creates the check command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	var dirs *cmdutil.DirFlags

	cmd := &cobra.Command{
		Use:     "check",
		GroupID: "core",
		Short:   "Fail when the detection directory is out of sync",
		Args:    cobra.NoArgs,
		Long: `Check computes the change log that sync would apply, prints it, and
exits non-zero when it is not empty. Nothing is written.

Use it in CI to reject changes that add or remove taxonomy records without
updating the detection directory.`,
		Example: `  taxsync check
  taxsync check -s taxonomy -d detection -o table`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := dirs.Apply(cmd, appCtx.SyncConfig())
			if err := cfg.Validate(); err != nil {
				return err
			}

			result, err := taxsync.Check(cmd.Context(), cfg.SourceDir, cfg.DerivedDir, cmdutil.SyncOptions(appCtx, cfg)...)
			if printErr := cmdutil.PrintResult(appCtx, result); printErr != nil && err == nil {
				err = printErr
			}
			return err
		},
	}

	dirs = cmdutil.AddDirFlags(cmd)

	return cmd
}
