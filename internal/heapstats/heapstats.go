// Package heapstats assembles the per-tier statistics model into the
// snapshot external collaborators read: current heap status, the
// small-block size-class status table, and small-block contention
// counters.
//
// Grounded on the classic Arena/Mpooler statistics fields
// (Memory/Allocated/Available/Utilization), generalized from one
// arena's bookkeeping to a whole-heap snapshot across tiers.
package heapstats

// TierStats is the common shape of one tier's counters: current,
// cumulative, and peak bytes, plus alloc/free counts.
type TierStats struct {
	CurrentBytes    int64
	CumulativeBytes int64
	PeakBytes       int64
	AllocCount      int64
	FreeCount       int64
}

// Snapshot is the full heap status report across tiers.
type Snapshot struct {
	Tiny       TierStats
	Medium     TierStats
	Large      TierStats
	SleepCount int64
}

// SizeClassStatus is one row of the small-block status table: a size
// class's block size alongside how many blocks it has ever served and
// how many are currently outstanding.
type SizeClassStatus struct {
	BlockSize int64
	Total     int64 // cumulative blocks ever allocated from this class
	Current   int64 // blocks presently allocated
}

// SizeClassContention is one row of the small-block contention table.
type SizeClassContention struct {
	BlockSize  int64
	SleepCount int64
}

// BinUtilization is one row of the medium tier's free-list bin
// utilization report: a bin's lower-bound block size, how many free
// blocks currently sit in it, and their combined byte capacity.
type BinUtilization struct {
	BlockSize  int64
	FreeBlocks int64
	FreeBytes  int64
}

// SizeDistribution summarizes the distribution of block sizes a
// variable-size tier (medium, large) has handed out, for tuning the
// granularity/hugepage thresholds.
type SizeDistribution struct {
	Samples int64
	Min     int64
	Max     int64
	Mean    int64
	StdDev  float64
}

// Totals sums current/peak/cumulative bytes across every tier.
func (s Snapshot) Totals() TierStats {
	sum := func(a, b TierStats) TierStats {
		return TierStats{
			CurrentBytes:    a.CurrentBytes + b.CurrentBytes,
			CumulativeBytes: a.CumulativeBytes + b.CumulativeBytes,
			PeakBytes:       a.PeakBytes + b.PeakBytes,
			AllocCount:      a.AllocCount + b.AllocCount,
			FreeCount:       a.FreeCount + b.FreeCount,
		}
	}
	return sum(sum(s.Tiny, s.Medium), s.Large)
}
