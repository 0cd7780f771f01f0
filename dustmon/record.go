package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/monitor"
)

func NewRecordCommand() *cobra.Command {
	var (
		mock bool
		port string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Store node readings until interrupted",
		Long:  `Store node readings in the configured store and purge readings older than store.retention.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Serial.Port = port
			}

			repo, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer repo.Close()

			dev := openDevice(cfg, mock)
			if err := dev.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer dev.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			rec := monitor.NewRecorder(dev, repo, cfg.Store.Retention)
			rec.AverageWindow = cfg.Monitor.AverageWindow

			err = rec.Run(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d readings, %d failed\n", rec.Saved(), rec.Skipped())
			if errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "use a simulated node instead of the serial port")
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port override")

	return cmd
}
