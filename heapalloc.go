// Package heapalloc is a general-purpose, multi-thread-friendly heap
// allocator for 64-bit systems: tiered tiny/small/medium/large size
// classes backed directly by OS virtual memory, with lock-less
// free-stack drains so a contended free() never blocks.
//
// It exposes the classic allocation primitives (Alloc, AllocZeroed,
// Free, FreeSized, Realloc, SizeOf) plus the statistics and
// leak-reporting surface external status tools read (heapstats,
// cmd/heapstat).
package heapalloc

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/heapalloc/heapconf"
	"github.com/prataprc/heapalloc/heaplog"
	"github.com/prataprc/heapalloc/internal/blockhdr"
	"github.com/prataprc/heapalloc/internal/heapstats"
	"github.com/prataprc/heapalloc/internal/large"
	"github.com/prataprc/heapalloc/internal/medium"
	"github.com/prataprc/heapalloc/internal/memutil"
	"github.com/prataprc/heapalloc/internal/sizeclass"
	"github.com/prataprc/heapalloc/internal/tiny"
)

// MaxMediumBlockSize is the medium tier's upper size ceiling, roughly
// 260KB, above which allocations go straight to the large tier.
const MaxMediumBlockSize = int64(260 * 1024)

var headerSize = int64(blockhdr.Size)

var (
	initOnce sync.Once
	downOnce sync.Once

	table      *sizeclass.Table
	tinyTier   *tiny.Pool
	mediumTier *medium.Info
	largeTier  *large.Pool

	settings     heapconf.Settings
	threadCursor uint32
)

// Init wires up the allocator's tiers according to setts, which is
// mixed over heapconf.Defaultsettings(). Must be called exactly once
// before any other function in this package.
func Init(setts heapconf.Settings) {
	initOnce.Do(func() {
		settings = heapconf.Defaultsettings().Mixin(setts)
		table = sizeclass.Build()
		mediumTier = medium.New("main")
		tinyTier = tiny.New(table, tiny.Config{
			Boost:     settings.Bool("boost"),
			Booster:   settings.Bool("booster"),
			PerThread: settings.Bool("per-thread-arenas"),
		}, mediumTier)
		largeTier = large.New(large.Config{
			NoRemap:           settings.Bool("no-remap"),
			HugepageThreshold: settings.Int64("large.hugepage_threshold"),
		})
		heaplog.Infow(heaplog.Fields{"boost": settings.Bool("boost"), "booster": settings.Bool("booster")},
			"heapalloc: initialized")
	})
}

// Shutdown tears the allocator down, optionally running the
// leak-reporting walk if "report-leaks" is set. Must be called
// exactly once, after every other caller has stopped allocating.
func Shutdown() {
	downOnce.Do(func() {
		if settings.Bool("report-leaks") {
			reportLeaks()
		}
		heaplog.Infof("heapalloc: shutdown")
	})
}

// arenaHint caches one arena-selection value per P via sync.Pool's
// per-P private slot: a Get/Put pair issued back to back from the
// same P, the common case for a goroutine running without
// preemption between an alloc and the next, tends to hand back the
// same value. Go has no cheap exported thread/goroutine id to hash
// directly, so this rides sync.Pool's own P-local stickiness instead
// of a plain round-robin counter, which rotates through every arena
// on every call regardless of which thread is calling.
var arenaHint = sync.Pool{
	New: func() interface{} {
		v := atomic.AddUint32(&threadCursor, 1)
		return &v
	},
}

func nextThreadHash() uint32 {
	hint := arenaHint.Get().(*uint32)
	v := *hint
	arenaHint.Put(hint)
	return v
}

// Alloc returns size bytes of uninitialized memory, dispatched to the
// appropriate tier. Returns nil on OS-mapping failure.
func Alloc(size int64) unsafe.Pointer {
	if size <= 0 {
		size = 1
	}
	if size <= sizeclass.MaxSmallBlockSize-headerSize {
		return tinyTier.Alloc(size+headerSize, nextThreadHash())
	}
	if size <= MaxMediumBlockSize-headerSize {
		return mediumTier.Alloc(size)
	}
	return largeTier.Alloc(size)
}

// AllocZeroed returns size bytes of zeroed memory.
func AllocZeroed(size int64) unsafe.Pointer {
	ptr := Alloc(size)
	if ptr == nil {
		return nil
	}
	if size < 1 {
		size = 1
	}
	b := unsafe.Slice((*byte)(ptr), size)
	clear(b)
	return ptr
}

// tierOf classifies a live block's owning tier by its header flags.
func tierOf(ptr unsafe.Pointer) (hdr *blockhdr.Header, isLarge, isMedium bool) {
	hdr = blockhdr.At(ptr)
	return hdr, hdr.Has(blockhdr.IsLarge), hdr.Has(blockhdr.IsMedium)
}

// Free returns ptr to its owning tier, returning its nominal size (0
// if ptr is nil or already freed).
func Free(ptr unsafe.Pointer) int64 {
	if ptr == nil {
		return 0
	}
	_, isLarge, isMedium := tierOf(ptr)
	switch {
	case isLarge:
		return largeTier.Free(ptr)
	case isMedium:
		size := blockhdr.At(ptr).Size()
		mediumTier.Free(ptr)
		return size
	default:
		return tinyTier.Free(ptr)
	}
}

// FreeSized is Free with a caller-supplied size hint; the core
// verifies nothing against it (no tier needs it to free correctly)
// but it is accepted for API parity with the classic realloc family.
func FreeSized(ptr unsafe.Pointer, size int64) int64 {
	return Free(ptr)
}

// SizeOf returns the nominal size of a live allocation.
func SizeOf(ptr unsafe.Pointer) int64 {
	if ptr == nil {
		return 0
	}
	hdr, isLarge, isMedium := tierOf(ptr)
	switch {
	case isLarge, isMedium:
		return hdr.Size()
	default:
		return tinyTier.SizeOf(ptr)
	}
}

// Realloc resizes the allocation pointed to by *ptr to size bytes,
// updating *ptr in place. Falls back to alloc+copy+free
// whenever a tier can't grow/shrink in place.
func Realloc(ptr *unsafe.Pointer, size int64) unsafe.Pointer {
	if *ptr == nil {
		*ptr = Alloc(size)
		return *ptr
	}

	hdr, isLarge, isMedium := tierOf(*ptr)
	_ = hdr
	switch {
	case isLarge:
		if grown, ok := largeTier.Realloc(*ptr, size); ok {
			*ptr = grown
			return grown
		}
	case isMedium:
		if grown := mediumTier.Realloc(*ptr, size); grown != nil {
			*ptr = grown
			return grown
		}
	}

	old := *ptr
	oldSize := SizeOf(old)

	allocSize := size
	if size > oldSize {
		allocSize = amortizedGrowth(oldSize, size, isLarge, isMedium)
	}
	newPtr := Alloc(allocSize)
	if newPtr == nil {
		return nil
	}
	n := oldSize
	if size < n {
		n = size
	}
	memutil.Memcpy(newPtr, old, int(n))
	Free(old)
	*ptr = newPtr
	return newPtr
}

// largeHugepageAmortizeThreshold is the current-size cutoff above
// which a growing large block overshoots by only 12.5% instead of 25%,
// matching the point where the absolute slack already covers typical
// growth bursts.
const largeHugepageAmortizeThreshold = int64(128 * 1024 * 1024)

// amortizedGrowth computes how much to actually request when a grow
// falls through to alloc+copy+free, so the fresh block already carries
// slack for the next growth instead of fitting the request exactly.
// Large blocks overshoot by 12.5%/25% depending on current size;
// medium blocks target current * 1.25; anything else (tiny/small, or
// a first-time allocation) is requested exactly.
func amortizedGrowth(cur, requested int64, isLarge, isMedium bool) int64 {
	switch {
	case isLarge:
		overshoot := cur + cur/4
		if cur > largeHugepageAmortizeThreshold {
			overshoot = cur + cur/8
		}
		if overshoot > requested {
			return overshoot
		}
	case isMedium:
		overshoot := cur + cur/4
		if overshoot > requested {
			return overshoot
		}
	}
	return requested
}

// CurrentHeapStatus snapshots the statistics model across every tier.
// SleepCount sums the lock-wait sleeps of the tiny/small size classes
// and of the medium tier.
func CurrentHeapStatus() heapstats.Snapshot {
	sleeps := mediumTier.Snapshot().SleepCount
	for _, c := range tinyTier.Contention() {
		sleeps += c.Sleeps
	}
	return heapstats.Snapshot{
		Tiny:       tinyTier.TierStats(),
		Medium:     mediumTier.TierStats(),
		Large:      largeTier.TierStats(),
		SleepCount: sleeps,
	}
}

// SmallBlockStatus reports per-size-class block counts across the
// tiny/small tier.
func SmallBlockStatus(max int) []heapstats.SizeClassStatus {
	return tinyTier.Status(max)
}

// SmallBlockContention reports per-size-class sleep counts across the
// tiny/small tier.
func SmallBlockContention(max int) []heapstats.SizeClassContention {
	return tinyTier.ContentionStatus(max)
}

// MediumBinUtilization reports the medium tier's free-list bin
// populations, the medium half of the slab utilization report that
// SmallBlockStatus covers for the tiny/small tier.
func MediumBinUtilization() []heapstats.BinUtilization {
	return mediumTier.BinUtilization()
}

// MediumSizeDistribution reports the min/max/mean/stddev of every
// block size the medium tier has handed out (requests rounded up to the
// tier's block granularity, including the chunks it feeds to the
// tiny/small pools), for tuning super-pool sizing and the medium/large
// boundary.
func MediumSizeDistribution() heapstats.SizeDistribution {
	return mediumTier.SizeDistribution()
}

// LargeSizeDistribution reports the min/max/mean/stddev of every
// mapped block size the large tier has handed out (request plus the
// block's link and header words, rounded up to the mapping
// granularity), for tuning the hugepage threshold.
func LargeSizeDistribution() heapstats.SizeDistribution {
	return largeTier.SizeDistribution()
}
