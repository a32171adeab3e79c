package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prataprc/heapalloc"
)

var contentionMax int

func init() {
	cmd := &cobra.Command{
		Use:   "contention",
		Short: "Print per-size-class lock-acquisition sleep counts for the tiny/small tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			initAllocator()
			rows := heapalloc.SmallBlockContention(contentionMax)

			fmt.Printf("block-size   sleeps\n")
			for _, r := range rows {
				fmt.Printf("%-12d %d\n", r.BlockSize, r.SleepCount)
			}

			heapalloc.Shutdown()
			return nil
		},
	}
	cmd.Flags().IntVar(&contentionMax, "max", 0, "limit output to the first N size classes (0 = all)")
	rootCmd.AddCommand(cmd)
}
