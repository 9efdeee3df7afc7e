package main

import (
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/nominas/internal/ingest"
	"github.com/joseph-ayodele/nominas/internal/observability"
	"github.com/joseph-ayodele/nominas/internal/pipeline"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		initialScan bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch DIR [DIR...]",
		Short: "Process payslips as they appear in the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr == "" {
				metricsAddr = a.cfg.Metrics.Addr
			}

			proc, repo, err := a.newProcessor(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeRepository(repo)

			g, ctx := errgroup.WithContext(cmd.Context())
			paths, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				Debounce:    debounce,
				SkipHidden:  true,
				Logger:      a.logger,
			})
			if err != nil {
				return err
			}

			if metricsAddr != "" {
				g.Go(func() error { return observability.Serve(ctx, metricsAddr, a.logger) })
			}
			g.Go(func() error {
				for err := range errs {
					a.logger.Warn("watch.error", "error", err)
				}
				return nil
			})
			out := cmd.OutOrStdout()
			g.Go(func() error {
				for path := range paths {
					// failures are logged and recorded by the processor
					sum, _ := proc.ProcessFile(ctx, path)
					printSummaries(out, []pipeline.Summary{sum})
				}
				return nil
			})

			a.logger.Info("watch.start", "roots", args, "metrics_addr", metricsAddr)
			err = g.Wait()
			a.logger.Info("watch.stop")
			return err
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus /metrics here (default from METRICS_ADDR)")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", true, "process files already present at startup")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "wait this long after the last write before processing")
	return cmd
}
