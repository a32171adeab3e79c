package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prataprc/heapalloc"
)

var sizesMax int

func init() {
	cmd := &cobra.Command{
		Use:   "sizes",
		Short: "Print the tiny/small size-class table and cumulative/current block counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			initAllocator()
			rows := heapalloc.SmallBlockStatus(sizesMax)

			fmt.Printf("tiny/small size classes:\n")
			fmt.Printf("block-size   total        current\n")
			for _, r := range rows {
				fmt.Printf("%-12d %-12d %d\n", r.BlockSize, r.Total, r.Current)
			}

			bins := heapalloc.MediumBinUtilization()
			fmt.Printf("\nmedium free-list bins:\n")
			fmt.Printf("block-size   free-blocks  free-bytes\n")
			for _, b := range bins {
				fmt.Printf("%-12d %-12d %d\n", b.BlockSize, b.FreeBlocks, b.FreeBytes)
			}

			heapalloc.Shutdown()
			return nil
		},
	}
	cmd.Flags().IntVar(&sizesMax, "max", 0, "limit output to the first N size classes (0 = all)")
	rootCmd.AddCommand(cmd)
}
