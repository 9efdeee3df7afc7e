package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/export"
	"github.com/joseph-ayodele/nominas/internal/repository"
)

func newExportCmd(a *app) *cobra.Command {
	var out, dni, cif, from, to string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored payslips to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := repository.Filter{DNI: dni, CIF: cif}
			var err error
			if filter.From, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if filter.To, err = parseDateFlag("to", to); err != nil {
				return err
			}

			ctx := cmd.Context()
			repo, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer a.closeRepository(repo)

			b, err := export.NewService(repo, a.logger).ExportXLSX(ctx, filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(b))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "nominas.xlsx", "output workbook")
	cmd.Flags().StringVar(&dni, "dni", "", "only this worker")
	cmd.Flags().StringVar(&cif, "cif", "", "only this company")
	cmd.Flags().StringVar(&from, "from", "", "period end on or after YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "period end on or before YYYY-MM-DD")
	return cmd
}

func parseDateFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, common.NewAppError("INVALID_FLAG", "--"+name+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}
