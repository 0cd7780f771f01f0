// Command dustmon watches, records and calibrates GP2Y1010 dust nodes.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/config"
	"github.com/itohio/dustnode/pkg/logging"
)

var (
	configPath = "config.yaml"
	logLevel   string
	noColor    bool

	cfg *config.Config
)

func main() {
	if err := NewCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dustmon",
		Short: "dustmon talks to GP2Y1010 dust sensor nodes",
		Long: `dustmon reads telemetry from a dust sensor node over a serial port,
stores it, and triggers baseline recalibration.

Use --mock on watch and record to run against a simulated node.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				color.NoColor = true
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if logLevel != "" {
				level = logLevel
			}
			if err := logging.Setup(level, cfg.Log.Console); err != nil {
				return err
			}

			log.Debug().Str("config", configPath).Msg("configuration loaded")
			return cfg.Validate()
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVar(&configPath, "config", configPath, "config file path")
	globalFlags.StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error), overrides config")
	globalFlags.BoolVar(&noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(
		NewWatchCommand(),
		NewRecordCommand(),
		NewHistoryCommand(),
		NewPortsCommand(),
		NewRecalibrateCommand(),
		NewProbeCommand(),
		NewConfigCommand(),
	)

	return cmd
}
