package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/sample"
)

func NewWatchCommand() *cobra.Command {
	var (
		mock    bool
		port    string
		average int
		count   int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print node readings as they arrive",
		Long: `Print node readings as they arrive, colored by density band.

Readings taken before the node learned its baseline are shown dimmed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Serial.Port = port
			}
			if cmd.Flags().Changed("average") {
				cfg.Monitor.AverageWindow = average
			}

			dev := openDevice(cfg, mock)
			if err := dev.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer dev.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			samples := sample.NewConverter(nil, 0)(dev.Records())
			if cfg.Monitor.AverageWindow > 1 {
				samples = sample.NewAveragingConverter(cfg.Monitor.AverageWindow, 0)(samples)
			}

			log.Info().Bool("mock", mock).Str("port", cfg.Serial.Port).Msg("watching node")

			out := cmd.OutOrStdout()
			for n := 0; count <= 0 || n < count; n++ {
				select {
				case s, ok := <-samples:
					if !ok {
						return nil
					}
					fmt.Fprintln(out, formatSample(s))
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "use a simulated node instead of the serial port")
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port override (e.g. COM3 or /dev/ttyACM0)")
	cmd.Flags().IntVarP(&average, "average", "a", 0, "moving average window in readings, overrides config")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many readings (0 = until interrupted)")

	return cmd
}
