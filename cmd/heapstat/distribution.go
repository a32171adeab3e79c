package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prataprc/heapalloc"
	"github.com/prataprc/heapalloc/internal/heapstats"
)

func init() {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Print the block-size distribution served by the medium and large tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			initAllocator()

			fmt.Printf("tier       samples       min           max           mean          stddev\n")
			row := func(name string, d heapstats.SizeDistribution) {
				fmt.Printf("%-10s %-13d %-13d %-13d %-13d %.2f\n",
					name, d.Samples, d.Min, d.Max, d.Mean, d.StdDev)
			}
			row("medium", heapalloc.MediumSizeDistribution())
			row("large", heapalloc.LargeSizeDistribution())

			heapalloc.Shutdown()
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
