// Package watch implements the watch command.
package watch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/taxsync"
	"github.com/agentstation/taxsync/internal/appcontext"
	"github.com/agentstation/taxsync/internal/cmd/cmdutil"
	"github.com/agentstation/taxsync/internal/metrics"
	"github.com/agentstation/taxsync/internal/watch"
	"github.com/agentstation/taxsync/pkg/constants"
	"github.com/agentstation/taxsync/pkg/errors"
)

// NewCommand creates the watch command using app context.
func NewCommand(appCtx appcontext.Interface) *cobra.Command {
	var (
		dirs        *cmdutil.DirFlags
		debounce    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:     "watch",
		GroupID: "core",
		Short:   "Sync now and again whenever the taxonomy changes",
		Args:    cobra.NoArgs,
		Long: `Watch runs sync once, then watches the taxonomy directory tree and
runs sync again after each burst of changes settles. Only the taxonomy
directory is watched, so the detection files sync writes do not retrigger it.

With --metrics-addr, Prometheus metrics are served on /metrics.`,
		Example: `  taxsync watch
  taxsync watch --debounce 2s --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := dirs.Apply(cmd, appCtx.SyncConfig())
			if cmd.Flags().Changed("debounce") {
				cfg.Debounce = debounce
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			cfg.DryRun = false
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			logger := appCtx.Logger()
			recorder := metrics.New()

			if cfg.MetricsAddr != "" {
				stop, err := serveMetrics(cfg.MetricsAddr, recorder)
				if err != nil {
					return err
				}
				defer stop()
				logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			}

			opts := append(cmdutil.SyncOptions(appCtx, cfg), taxsync.WithObserver(recorder))
			run := func(ctx context.Context) error {
				result, err := taxsync.Sync(ctx, cfg.SourceDir, cfg.DerivedDir, opts...)
				if printErr := cmdutil.PrintResult(appCtx, result); printErr != nil && err == nil {
					err = printErr
				}
				return err
			}

			if err := run(ctx); err != nil {
				var pathErr *errors.PathError
				if errors.As(err, &pathErr) {
					return err
				}
				logger.Error().Err(err).Msg("Initial sync failed")
			}

			w, err := watch.New(cfg.SourceDir, watch.WithDebounce(cfg.Debounce), watch.WithLogger(logger))
			if err != nil {
				return err
			}
			return w.Run(ctx, run)
		},
	}

	dirs = cmdutil.AddDirFlags(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", constants.DefaultDebounce, "Quiet period before a change triggers a sync")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9464)")

	return cmd
}

// serveMetrics starts the metrics listener and returns its shutdown function.
func serveMetrics(addr string, recorder *metrics.Recorder) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapIO("listen", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: constants.MetricsReadHeaderTimeout,
	}
	go func() { _ = srv.Serve(ln) }()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
