package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/sample"
	"github.com/itohio/dustnode/pkg/telemetry"
)

func NewRecalibrateCommand() *cobra.Command {
	var (
		mock   bool
		port   string
		window time.Duration
	)

	cmd := &cobra.Command{
		Use:   "recalibrate",
		Short: "Relearn the node's clean-air baseline",
		Long: `Ask the node to relearn its dust baseline over --window.

Only run this while the air around the sensor is clean. The next reading
after the window is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Serial.Port = port
			}

			dev := openDevice(cfg, mock)
			if err := dev.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer dev.Close()

			sent := time.Now()
			if err := dev.Recalibrate(window); err != nil {
				return fmt.Errorf("failed to request recalibration: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("recalibration requested for %v", window))

			rec, err := firstAfter(dev.Records(), sent.Add(window), window+10*time.Second, time.Now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSample(sample.FromRecord(rec, time.Now())))
			return nil
		},
	}

	cmd.Flags().BoolVar(&mock, "mock", false, "use a simulated node instead of the serial port")
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port override")
	cmd.Flags().DurationVarP(&window, "window", "w", 3*time.Second, "learning window")

	return cmd
}

// firstAfter returns the first record received at or after notBefore.
// The node blocks for the whole learning window before it reports, so
// anything earlier was already on the wire when the command went out.
func firstAfter(records <-chan telemetry.Record, notBefore time.Time, timeout time.Duration, now func() time.Time) (telemetry.Record, error) {
	deadline := time.After(timeout)
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				return telemetry.Record{}, fmt.Errorf("node disconnected")
			}
			if now().Before(notBefore) {
				log.Debug().Dur("uptime", rec.Uptime).Msg("skipping reading taken before recalibration")
				continue
			}
			return rec, nil
		case <-deadline:
			return telemetry.Record{}, fmt.Errorf("no reading within %v", timeout)
		}
	}
}
