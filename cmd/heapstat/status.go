package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prataprc/heapalloc"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the current heap status across every tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			initAllocator()
			status := heapalloc.CurrentHeapStatus()

			fmt.Printf("tier       current       cumulative     peak          allocs        frees\n")
			row := func(name string, current, cumulative, peak, allocs, frees int64) {
				fmt.Printf("%-10s %-13d %-14d %-13d %-13d %-13d\n",
					name, current, cumulative, peak, allocs, frees)
			}
			row("tiny", status.Tiny.CurrentBytes, status.Tiny.CumulativeBytes,
				status.Tiny.PeakBytes, status.Tiny.AllocCount, status.Tiny.FreeCount)
			row("medium", status.Medium.CurrentBytes, status.Medium.CumulativeBytes,
				status.Medium.PeakBytes, status.Medium.AllocCount, status.Medium.FreeCount)
			row("large", status.Large.CurrentBytes, status.Large.CumulativeBytes,
				status.Large.PeakBytes, status.Large.AllocCount, status.Large.FreeCount)

			totals := status.Totals()
			row("total", totals.CurrentBytes, totals.CumulativeBytes,
				totals.PeakBytes, totals.AllocCount, totals.FreeCount)

			if status.SleepCount > 0 {
				fmt.Printf("\nsleep count: %v\n", status.SleepCount)
			}

			heapalloc.Shutdown()
			return nil
		},
	})
}
