package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/nominas/internal/common"
	"github.com/joseph-ayodele/nominas/internal/logger"
)

// app carries what every subcommand needs once the persistent flags are read.
type app struct {
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	cfg    *common.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "nominas",
		Short: "Extract structured data from Spanish payslips",
		Long: `nominas reads payslip PDFs (or their extracted text), parses each page into
company, worker, period and line items, optionally double-checks the result
with a vision model and stores it for export.

Examples:
  nominas parse --in nomina.txt
  nominas process --verify --workers 4 ./nominas/
  nominas export --out nominas.xlsx --dni 12345678Z
  nominas watch ./inbox --metrics-addr :9090`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML configuration file (environment variables take precedence)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before configuration")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	pf.StringVar(&a.logFormat, "log-format", "", "json or text (overrides LOG_FORMAT)")

	root.AddCommand(
		newParseCmd(a),
		newProcessCmd(a),
		newExportCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := common.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	if a.cfgFile != "" {
		cfg, err := common.LoadConfigFile(a.cfgFile)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = common.LoadConfig()
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	a.logger = logger.InitLogger(cmd.ErrOrStderr(), a.cfg.Log.Level, a.cfg.Log.Format)
	return nil
}
