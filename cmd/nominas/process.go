package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/nominas/internal/ingest"
	"github.com/joseph-ayodele/nominas/internal/pipeline"
)

func newProcessCmd(a *app) *cobra.Command {
	var (
		verify     bool
		workers    int
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "process [files or directories...]",
		Short: "Parse and store every page of the given payslip files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("verify") {
				a.cfg.Pipeline.Verify = verify
			}
			if cmd.Flags().Changed("workers") {
				a.cfg.Pipeline.Workers = workers
			}

			paths, stats, err := ingest.Discover(args, skipHidden)
			if err != nil {
				return err
			}
			a.logger.Info("process.discovered",
				"scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

			ctx := cmd.Context()
			proc, repo, err := a.newProcessor(ctx)
			if err != nil {
				return err
			}
			defer a.closeRepository(repo)

			sums, err := proc.ProcessFiles(ctx, paths, a.cfg.Pipeline.Workers)
			printSummaries(cmd.OutOrStdout(), sums)
			return err
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "double-check each page with the configured vision model")
	cmd.Flags().IntVar(&workers, "workers", 0, "files processed concurrently (default from WORKERS)")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "ignore dotfiles and dot directories")
	return cmd
}

func printSummaries(w io.Writer, sums []pipeline.Summary) {
	for _, s := range sums {
		if s.Err != "" {
			fmt.Fprintf(w, "%s\tERROR\t%s\n", s.Path, s.Err)
			continue
		}
		fmt.Fprintf(w, "%s\tpages=%d parsed=%d verified=%d failed=%d\n",
			s.Path, len(s.Pages), s.Parsed, s.Verified, s.Failed)
	}
}
