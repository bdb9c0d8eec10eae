// Package cli holds the devicelink command tree.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"devicelink/internal/platform/config"
	"devicelink/internal/platform/logger"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func New() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "devicelink",
		Short: "Link registry catalogue numbers to MDALL device licences",
		Long: `devicelink formats registry catalogue numbers into manufacturer device
identifiers and resolves them against the Medical Devices Active Licence
Listing, falling back to the raw number and to archived licences.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: a.setup,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	cmd.PersistentFlags().String(flagConfig, "", "Path to a YAML configuration file.")
	cmd.PersistentFlags().String(flagLogLevel, "", `Log level ("debug", "info", "warn", "error"). Overrides the config file.`)
	cmd.PersistentFlags().String(flagLogFormat, "", `Log format ("text" or "json"). Overrides the config file.`)

	cmd.AddCommand(newFormatCommand(a))
	cmd.AddCommand(newResolveCommand(a))
	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newServeCommand(a))
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v, _ := cmd.Flags().GetString(flagLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := cmd.Flags().GetString(flagLogFormat); v != "" {
		cfg.Log.Format = v
	}

	log, err := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = log
	return nil
}
