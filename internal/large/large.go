// Package large implements the large-block tier: direct OS map/unmap
// above the medium ceiling, a single lock guarding a global circular
// list, Linux in-place remap grow, and a Windows adjacent-region grow
// probe.
//
// Grounded on a classic arena allocator's circular-list bookkeeping
// style and a lazy-DLL GOOS-split pattern used for file locks,
// generalized from file locks to virtual memory.
package large

import (
	"unsafe"

	"github.com/prataprc/heapalloc/internal/blockhdr"
	"github.com/prataprc/heapalloc/internal/heapstats"
	"github.com/prataprc/heapalloc/internal/osmem"
	"github.com/prataprc/heapalloc/internal/spinlock"
	"github.com/prataprc/heapalloc/internal/statavg"
)

// Granularity is the rounding unit for large requests below the
// hugepage threshold.
const Granularity = int64(64 * 1024)

// HugepageGranularity is the rounding unit used at or above the
// configured hugepage threshold, tunable via heapconf.Settings
// "large.hugepage_threshold".
const HugepageGranularity = int64(2 * 1024 * 1024)

// hugepageAmortizeThreshold is the current-size cutoff above which a
// growing block overshoots by 12.5% instead of 25%.
const hugepageAmortizeThreshold = int64(128 * 1024 * 1024)

const headerSize = int64(unsafe.Sizeof(uintptr(0)))

// link is the intrusive node for the global circular list of
// in-use large blocks, stored at the start of each block (ahead of
// its header, conceptually the same word range the header occupies
// once freed there is no payload left to protect).
type link struct {
	prev, next unsafe.Pointer
}

// Pool is the large-tier allocator: a single lock-guarded circular
// list of live blocks, plus Linux/Windows grow-in-place support.
type Pool struct {
	lock     spinlock.Lock
	sentinel link

	noRemap           bool
	hugepageThreshold int64

	stats   Stats
	sizeAvg statavg.AverageInt64
}

// Stats mirrors the shared per-tier counter shape for the large tier.
type Stats struct {
	CurrentBytes    int64
	CumulativeBytes int64
	PeakBytes       int64
	AllocCount      int64
	FreeCount       int64
}

// Config carries the large tier's tunables, driven by the
// "no-remap" and "large.hugepage_threshold" settings.
type Config struct {
	NoRemap           bool
	HugepageThreshold int64
}

// New constructs an empty large-block tier.
func New(cfg Config) *Pool {
	threshold := cfg.HugepageThreshold
	if threshold <= 0 {
		threshold = 4 * 1024 * 1024
	}
	p := &Pool{noRemap: cfg.NoRemap, hugepageThreshold: threshold}
	p.sentinel.prev = unsafe.Pointer(&p.sentinel)
	p.sentinel.next = unsafe.Pointer(&p.sentinel)
	return p
}

var linkBytes = int64(unsafe.Sizeof(link{}))

// roundSize returns the total OS-mapped length for a large block able
// to hold n payload bytes: the circular-list link, the block header,
// and the payload, rounded up to the applicable granularity.
func roundSize(n, threshold int64) int64 {
	total := n + headerSize + linkBytes
	granule := Granularity
	if total >= threshold {
		granule = HugepageGranularity
	}
	if r := total % granule; r != 0 {
		total += granule - r
	}
	return total
}

// Alloc maps a fresh large block from the OS (outside any lock) and
// links it into the global list under a brief lock hold.
func (p *Pool) Alloc(n int64) unsafe.Pointer {
	size := roundSize(n, p.hugepageThreshold)

	base := osmem.Map(size)
	if base == nil {
		return nil
	}

	p.lock.Acquire(5000)
	p.linkBlock(base)
	p.recordAlloc(size)
	p.lock.Unlock()

	*blockhdr.At(headerAddr(base)) = blockhdr.PackSize(size, blockhdr.IsLarge)
	return payloadOf(base)
}

// headerAddr and payloadOf translate between a large block's base
// address (where the circular-list link lives) and the header/payload
// addresses that follow it.
func headerAddr(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(base) + uintptr(unsafe.Sizeof(link{})) + uintptr(headerSize))
}

func payloadOf(base unsafe.Pointer) unsafe.Pointer {
	return headerAddr(base)
}

func baseOf(payload unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(payload) - uintptr(headerSize) - uintptr(unsafe.Sizeof(link{})))
}

func (p *Pool) linkBlock(base unsafe.Pointer) {
	l := (*link)(base)
	l.next = unsafe.Pointer(&p.sentinel)
	l.prev = p.sentinel.prev
	(*link)(p.sentinel.prev).next = base
	p.sentinel.prev = base
}

func (p *Pool) unlinkBlock(base unsafe.Pointer) {
	l := (*link)(base)
	(*link)(l.prev).next = l.next
	(*link)(l.next).prev = l.prev
}

// Free unlinks and unmaps a large block. Double-free detection: if
// IS_FREE is already set, returns 0 without unmapping.
func (p *Pool) Free(payload unsafe.Pointer) int64 {
	hdr := blockhdr.At(payload)
	if hdr.Has(blockhdr.IsFree) {
		return 0
	}
	size := hdr.Size()
	base := baseOf(payload)

	p.lock.Acquire(5000)
	*hdr = hdr.WithFlags(blockhdr.IsFree)
	p.unlinkBlock(base)
	p.recordFree(size)
	p.lock.Unlock()

	osmem.Unmap(base, size)
	return size
}

func (p *Pool) recordAlloc(size int64) {
	p.stats.AllocCount++
	p.stats.CurrentBytes += size
	p.stats.CumulativeBytes += size
	if p.stats.CurrentBytes > p.stats.PeakBytes {
		p.stats.PeakBytes = p.stats.CurrentBytes
	}
	p.sizeAvg.Add(size)
}

func (p *Pool) recordFree(size int64) {
	p.stats.FreeCount++
	p.stats.CurrentBytes -= size
}

// Walk visits every currently live large block, reporting its payload
// pointer and nominal size. Used by the leak-reporting walk at
// shutdown.
func (p *Pool) Walk(visit func(payload unsafe.Pointer, size int64)) {
	p.lock.Acquire(5000)
	defer p.lock.Unlock()
	for l := p.sentinel.next; l != unsafe.Pointer(&p.sentinel); {
		base := l
		next := (*link)(l).next
		hdr := blockhdr.At(headerAddr(base))
		visit(payloadOf(base), hdr.Size())
		l = next
	}
}

// Snapshot returns a copy of the large tier's statistics.
func (p *Pool) Snapshot() Stats {
	return p.stats
}

// TierStats converts the large tier's counters to the shared
// heapstats.TierStats shape used by the root snapshot.
func (p *Pool) TierStats() heapstats.TierStats {
	s := p.stats
	return heapstats.TierStats{
		CurrentBytes:    s.CurrentBytes,
		CumulativeBytes: s.CumulativeBytes,
		PeakBytes:       s.PeakBytes,
		AllocCount:      s.AllocCount,
		FreeCount:       s.FreeCount,
	}
}

// SizeDistribution reports the min/max/mean/stddev of every block
// size this tier has served, under lock since AverageInt64 carries
// no synchronization of its own.
func (p *Pool) SizeDistribution() heapstats.SizeDistribution {
	p.lock.Acquire(5000)
	defer p.lock.Unlock()
	avg := p.sizeAvg
	return heapstats.SizeDistribution{
		Samples: avg.Samples(),
		Min:     avg.Min(),
		Max:     avg.Max(),
		Mean:    avg.Mean(),
		StdDev:  avg.SD(),
	}
}

// Realloc implements the large tier's shrink/grow/fallback policy.
// The caller is responsible for the alloc+copy+free fallback when
// Realloc returns nil with ok=false.
func (p *Pool) Realloc(payload unsafe.Pointer, newSize int64) (result unsafe.Pointer, ok bool) {
	hdr := blockhdr.At(payload)
	cur := hdr.Size()
	size := roundSize(newSize, p.hugepageThreshold)

	if size <= cur && size*2 >= cur {
		return payload, true
	}

	if size < cur {
		return nil, false
	}

	if !p.noRemap {
		if grown := p.growInPlace(payload, cur, p.amortizedGrowSize(cur, size)); grown != nil {
			return grown, true
		}
	}
	return nil, false
}

// amortizedGrowSize overshoots a grow request by 12.5% of the current
// block size once it exceeds hugepageAmortizeThreshold, 25% below it,
// so repeated small grows don't each remap the block. Never returns
// less than the requested size itself.
func (p *Pool) amortizedGrowSize(cur, requested int64) int64 {
	overshoot := cur + cur/4
	if cur > hugepageAmortizeThreshold {
		overshoot = cur + cur/8
	}
	grown := roundToGranularity(overshoot, p.hugepageThreshold)
	if grown < requested {
		return requested
	}
	return grown
}

// roundToGranularity rounds an already-total mapped size up to the
// 64KB/2MB granularity roundSize applies to fresh requests.
func roundToGranularity(total, threshold int64) int64 {
	granule := Granularity
	if total >= threshold {
		granule = HugepageGranularity
	}
	if r := total % granule; r != 0 {
		total += granule - r
	}
	return total
}
