// Command heapstat is a thin CLI over the allocator's current heap
// status, small-block contention counters, and size-class table.
//
// Modeled on a cobra cmd/hivectl-style layout: one file per
// subcommand, persistent global flags on a root command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prataprc/heapalloc"
	"github.com/prataprc/heapalloc/heapconf"
)

var (
	boost       bool
	booster     bool
	perThread   bool
	noRemap     bool
	reportLeaks bool
	demoBytes   int64
)

var rootCmd = &cobra.Command{
	Use:   "heapstat",
	Short: "Inspect heapalloc's size classes and runtime statistics",
	Long: `heapstat initializes an in-process heapalloc allocator, optionally
drives a synthetic allocation workload, and prints its statistics.

Since the allocator keeps no persistent state layout, heapstat cannot
attach to another process's heap; it is a demonstration and tuning
tool for the allocator's own size-class table and configuration
toggles.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&boost, "boost", false, "raise the tiny ceiling to 256B")
	rootCmd.PersistentFlags().BoolVar(&booster, "booster", false, "use 127 tiny arenas instead of 7")
	rootCmd.PersistentFlags().BoolVar(&perThread, "per-thread-arenas", false, "thread-hash arena selection")
	rootCmd.PersistentFlags().BoolVar(&noRemap, "no-remap", false, "disable in-place large-block grow")
	rootCmd.PersistentFlags().BoolVar(&reportLeaks, "report-leaks", false, "run the leak-reporting walk on exit")
	rootCmd.PersistentFlags().Int64Var(&demoBytes, "demo-bytes", 0,
		"drive a synthetic workload allocating roughly this many bytes before reporting")
}

func initAllocator() {
	heapalloc.Init(heapconf.Settings{
		"boost":             boost,
		"booster":           booster,
		"per-thread-arenas": perThread,
		"no-remap":          noRemap,
		"report-leaks":      reportLeaks,
	})
	if demoBytes > 0 {
		driveDemoWorkload(demoBytes)
	}
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	execute()
}
