package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/nominas/internal/nomina"
)

func newParseCmd(a *app) *cobra.Command {
	var in, out string
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse one payslip text page and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				b   []byte
				err error
			)
			if in == "-" {
				b, err = io.ReadAll(cmd.InOrStdin())
			} else {
				b, err = os.ReadFile(in)
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			res, err := nomina.ParseBytes(b)
			if err != nil {
				return err
			}
			js, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			js = append(js, '\n')

			a.logger.Debug("parse.ok",
				"in", in,
				"devengos", len(res.DevengoItems),
				"deducciones", len(res.DeduccionItems),
				"aportaciones", len(res.AportacionEmpresaItems),
				"warnings", len(res.Warnings),
			)
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(js)
				return err
			}
			return os.WriteFile(out, js, 0o644)
		},
	}
	cmd.Flags().StringVar(&in, "in", "-", "text file to parse (- for stdin)")
	cmd.Flags().StringVar(&out, "out", "", "write JSON here instead of stdout")
	return cmd
}
