package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/dust"
	"github.com/itohio/dustnode/pkg/hostio"
	"github.com/itohio/dustnode/pkg/logging"
	"github.com/itohio/dustnode/pkg/rain"
	"github.com/itohio/dustnode/pkg/sample"
	"github.com/itohio/dustnode/pkg/telemetry"
)

func NewProbeCommand() *cobra.Command {
	var (
		led      string
		channel  int
		samples  int
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the dust driver on local GPIO and ADS1015 hardware",
		Long: `Run the dust driver on this board: the sensor LED on a GPIO pin and its
output on an ADS1015 channel. The baseline is learned first, so start in
clean air.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %v", interval)
			}

			opts := hostio.Opts{
				LEDPin:     cfg.Probe.LEDPin,
				Channel:    cfg.Probe.Channel,
				I2CAddress: cfg.Probe.I2CAddress,
				MaxVoltage: cfg.Probe.MaxVoltage,
				VRef:       cfg.Dust.VRef,
			}
			if cmd.Flags().Changed("led") {
				opts.LEDPin = led
			}
			if cmd.Flags().Changed("channel") {
				opts.Channel = channel
			}
			if !cmd.Flags().Changed("samples") {
				samples = cfg.Dust.Samples
			}

			hw, err := hostio.Open(opts)
			if err != nil {
				return err
			}
			defer hw.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			drv := dust.New(cfg.Dust.Driver(), hw.LED, hw.ADC, nil, logging.Dust(log.Logger))
			drv.Initialize()

			start := time.Now()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			out := cmd.OutOrStdout()
			for n := 0; count <= 0 || n < count; n++ {
				r := drv.Read(samples)
				rec := telemetry.NewRecord(time.Since(start), drv.Ready(), r, rain.Reading{})
				fmt.Fprintln(out, formatSample(sample.FromRecord(rec, time.Now())))

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return nil
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&led, "led", "GPIO17", "GPIO driving the sensor LED, overrides config")
	cmd.Flags().IntVar(&channel, "channel", 0, "ADS1015 channel of the sensor output, overrides config")
	cmd.Flags().IntVar(&samples, "samples", dust.DefaultSamples, "pulses averaged per reading, overrides config")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "stop after this many readings (0 = until interrupted)")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "time between readings")

	return cmd
}
