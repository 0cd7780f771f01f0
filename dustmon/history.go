package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/itohio/dustnode/pkg/sample"
)

func NewHistoryCommand() *cobra.Command {
	var (
		n      int
		points int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stored readings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := openStore(cfg.Store)
			if err != nil {
				return err
			}
			defer repo.Close()

			readings, err := repo.Latest(cmd.Context(), n)
			if err != nil {
				return err
			}
			slices.Reverse(readings)

			samples := make([]sample.Sample, len(readings))
			for i, r := range readings {
				samples[i] = r.Sample()
			}
			samples = sample.Downsample(nil, samples, points)

			out := cmd.OutOrStdout()
			if len(samples) == 0 {
				fmt.Fprintln(out, "no readings stored")
				return nil
			}
			for _, s := range samples {
				fmt.Fprintln(out, formatSample(s))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "number", "n", 20, "number of most recent readings to load")
	cmd.Flags().IntVar(&points, "points", 0, "decimate the loaded readings to at most this many lines (0 = all)")

	return cmd
}
