// Package medium implements the bitmap-indexed medium-block allocator:
// 1.25 MB OS-mapped super-pools, carved by a sequential-feed cursor
// and a 32-group x 32-bin free-block bitmap index with immediate
// coalescing.
//
// Grounded on a classic arena allocator's pool-selection and
// bitmap-scan free-list idiom, generalized from fixed-size slabs to
// variable-size coalescing blocks, and on internal/bitutil.Bit32 for
// the group/bin bitmap scans.
package medium

import (
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/heapalloc/heaplog"
	"github.com/prataprc/heapalloc/internal/bitutil"
	"github.com/prataprc/heapalloc/internal/blockhdr"
	"github.com/prataprc/heapalloc/internal/freestack"
	"github.com/prataprc/heapalloc/internal/heapstats"
	"github.com/prataprc/heapalloc/internal/osmem"
	"github.com/prataprc/heapalloc/internal/spinlock"
	"github.com/prataprc/heapalloc/internal/statavg"
)

const (
	// SuperPoolSize is 20 x 64KB.
	SuperPoolSize = int64(20 * 64 * 1024)

	// BinGranularity quantizes medium block sizes to 256B bins.
	BinGranularity = int64(256)

	// NumGroups x NumBins gives the 1024-entry Bins array.
	NumGroups  = 32
	NumBins    = 32
	NumEntries = NumGroups * NumBins

	// MinMedium is 11*256 + 48.
	MinMedium = int64(11*256 + 48)

	headerSize   = int64(unsafe.Sizeof(uintptr(0)))
	trailerSize  = int64(unsafe.Sizeof(uintptr(0)))
	poolLinkSize = int64(unsafe.Sizeof(poolLink{}))
)

// poolLink is the intrusive circular-list node for super-pools,
// written at each super-pool's base address.
type poolLink struct {
	prev, next unsafe.Pointer
}

// binLink is the intrusive doubly-linked-list node for a free block,
// overlaid on the block's unused payload bytes.
type binLink struct {
	prev, next unsafe.Pointer // addresses of other blocks' header words
}

func binLinkAt(blockAddr unsafe.Pointer) *binLink {
	return (*binLink)(unsafe.Pointer(uintptr(blockAddr) + uintptr(headerSize)))
}

// Info is one medium-pool namespace. At least one exists globally;
// additional ones may be dedicated to backing a size class's
// small-block pools.
type Info struct {
	lock         spinlock.Lock
	prefetchLock spinlock.Lock

	sentinel poolLink // super-pool circular list sentinel

	feedBase      unsafe.Pointer // current sequential-feed super-pool base
	feedPtr       unsafe.Pointer // next free address in the feed window
	feedRemaining int64

	bins        [NumEntries]binLink
	groupBitmap bitutil.Bit32
	binBitmaps  [NumGroups]bitutil.Bit32

	prefetch unsafe.Pointer // prefetched super-pool base, or nil

	freeStack freestack.Stack

	stats   Stats
	sizeAvg statavg.AverageInt64
	name    string
}

// Stats mirrors the shared per-tier counter shape for the medium tier.
type Stats struct {
	CurrentBytes    int64
	CumulativeBytes int64
	PeakBytes       int64
	AllocCount      int64
	FreeCount       int64
	SleepCount      int64
	SuperPools      int64
}

// New constructs an empty medium-pool namespace. name is used only in
// diagnostics.
func New(name string) *Info {
	info := &Info{name: name}
	info.sentinel.prev = unsafe.Pointer(&info.sentinel)
	info.sentinel.next = unsafe.Pointer(&info.sentinel)
	for i := range info.bins {
		info.bins[i].prev = unsafe.Pointer(&info.bins[i])
		info.bins[i].next = unsafe.Pointer(&info.bins[i])
	}
	return info
}

func round256(n int64) int64 {
	n += 48
	if r := n % BinGranularity; r != 0 {
		n += BinGranularity - r
	}
	if n < MinMedium {
		n = MinMedium
	}
	return n
}

func binIndex(size int64) int {
	idx := (size - MinMedium) / BinGranularity
	if idx < 0 {
		idx = 0
	}
	if idx >= NumEntries {
		idx = NumEntries - 1
	}
	return int(idx)
}

// Alloc returns a medium block able to hold n bytes of payload
// (header included), or nil on OS-mapping failure.
func (info *Info) Alloc(n int64) unsafe.Pointer {
	size := round256(n)

	info.acquire()
	defer info.release()

	if blk := info.takeFromBin(size); blk != nil {
		info.recordAlloc(blockhdr.At(blk).Size())
		return unsafe.Pointer(uintptr(blk) + uintptr(headerSize))
	}

	if info.feedRemaining >= size {
		blk := info.carveFromFeed(size)
		info.recordAlloc(size)
		return unsafe.Pointer(uintptr(blk) + uintptr(headerSize))
	}

	info.binFeedRemainder()
	if !info.refill() {
		return nil
	}
	blk := info.carveFromFeed(size)
	info.recordAlloc(size)
	return unsafe.Pointer(uintptr(blk) + uintptr(headerSize))
}

// takeFromBin finds the lowest bin whose blocks are >= size and
// unlinks one, splitting off any large remainder.
func (info *Info) takeFromBin(size int64) unsafe.Pointer {
	target := binIndex(size)
	group, bin := target/NumBins, target%NumBins

	gbmp := info.binBitmaps[group]
	bitIdx := gbmp.FindfirstsetFrom(uint8(bin))
	if bitIdx < 0 {
		g := int(info.groupBitmap.FindfirstsetFrom(uint8(group + 1)))
		if g < 0 {
			return nil
		}
		group = g
		bitIdx = info.binBitmaps[group].Findfirstset()
		if bitIdx < 0 {
			return nil
		}
	}
	entry := group*NumBins + bitIdx
	link := &info.bins[entry]
	if link.next == unsafe.Pointer(link) {
		return nil
	}
	blockLink := (*binLink)(link.next)
	blockAddr := unsafe.Pointer(uintptr(unsafe.Pointer(blockLink)) - uintptr(headerSize))
	info.unlinkBin(entry, blockAddr)

	hdr := blockhdr.At(blockAddr)
	full := hdr.Size()
	if full >= size+MinMedium {
		info.splitBlock(blockAddr, size, full)
	} else {
		info.clearPrevFree(blockAddr, full)
	}
	return blockAddr
}

func (info *Info) unlinkBin(entry int, blockAddr unsafe.Pointer) {
	link := binLinkAt(blockAddr)
	prev := (*binLink)(link.prev)
	next := (*binLink)(link.next)
	prev.next = unsafe.Pointer(next)
	next.prev = unsafe.Pointer(prev)

	sentinel := &info.bins[entry]
	if sentinel.next == unsafe.Pointer(sentinel) {
		group, bin := entry/NumBins, entry%NumBins
		info.binBitmaps[group] = info.binBitmaps[group].Clearbit(uint8(bin))
		if info.binBitmaps[group] == 0 {
			info.groupBitmap = info.groupBitmap.Clearbit(uint8(group))
		}
	}
}

func (info *Info) binBlock(blockAddr unsafe.Pointer, size int64) {
	hdr := blockhdr.PackSize(size, blockhdr.IsFree)
	*blockhdr.At(blockAddr) = hdr
	setTrailer(blockAddr, size)

	entry := binIndex(size)
	sentinel := &info.bins[entry]
	link := binLinkAt(blockAddr)
	link.next = unsafe.Pointer(sentinel)
	link.prev = sentinel.prev
	(*binLink)(sentinel.prev).next = unsafe.Pointer(link)
	sentinel.prev = unsafe.Pointer(link)

	group, bin := entry/NumBins, entry%NumBins
	info.binBitmaps[group] = info.binBitmaps[group].Setbit(uint8(bin))
	info.groupBitmap = info.groupBitmap.Setbit(uint8(group))

	info.setPrevFree(blockAddr, size, true)
}

// splitBlock carves `size` bytes off the head of a free block found in
// a bin, bins the remainder, and marks the allocated prefix in use.
func (info *Info) splitBlock(blockAddr unsafe.Pointer, size, full int64) {
	rem := full - size
	suffix := unsafe.Pointer(uintptr(blockAddr) + uintptr(size))
	info.binBlock(suffix, rem)
	*blockhdr.At(blockAddr) = blockhdr.PackSize(size, blockhdr.IsMedium)
	setTrailer(blockAddr, size)
}

func (info *Info) clearPrevFree(blockAddr unsafe.Pointer, size int64) {
	*blockhdr.At(blockAddr) = blockhdr.PackSize(size, blockhdr.IsMedium)
	setTrailer(blockAddr, size)
	info.setPrevFree(blockAddr, size, false)
}

func (info *Info) setPrevFree(blockAddr unsafe.Pointer, size int64, free bool) {
	next := unsafe.Pointer(uintptr(blockAddr) + uintptr(size))
	if !info.withinPool(blockAddr, next) {
		return
	}
	hdr := blockhdr.At(next)
	if free {
		*hdr = hdr.WithFlags(blockhdr.PrevMediumFree)
	} else {
		*hdr = hdr.WithoutFlags(blockhdr.PrevMediumFree)
	}
}

// poolEnd returns the exclusive end address of the super-pool that
// owns blockAddr, or nil if blockAddr doesn't fall inside any
// super-pool currently linked into this namespace.
func (info *Info) poolEnd(blockAddr unsafe.Pointer) unsafe.Pointer {
	addr := uintptr(blockAddr)
	for l := info.sentinel.next; l != unsafe.Pointer(&info.sentinel); l = (*poolLink)(l).next {
		base := uintptr(l)
		if addr >= base && addr < base+uintptr(SuperPoolSize) {
			return unsafe.Pointer(base + uintptr(SuperPoolSize))
		}
	}
	return nil
}

// withinPool reports whether next, the address immediately following
// a block that starts at blockAddr, still falls inside blockAddr's
// owning super-pool. A false result means next sits at or past the
// super-pool's mapped edge and must not be dereferenced.
func (info *Info) withinPool(blockAddr, next unsafe.Pointer) bool {
	end := info.poolEnd(blockAddr)
	return end != nil && uintptr(next) < uintptr(end)
}

func setTrailer(blockAddr unsafe.Pointer, size int64) {
	trailer := (*int64)(unsafe.Pointer(uintptr(blockAddr) + uintptr(size) - uintptr(trailerSize)))
	*trailer = size
}

func trailerAt(end unsafe.Pointer) int64 {
	return *(*int64)(unsafe.Pointer(uintptr(end) - uintptr(trailerSize)))
}

func (info *Info) carveFromFeed(size int64) unsafe.Pointer {
	blk := info.feedPtr
	info.feedPtr = unsafe.Pointer(uintptr(info.feedPtr) + uintptr(size))
	info.feedRemaining -= size
	*blockhdr.At(blk) = blockhdr.PackSize(size, blockhdr.IsMedium)
	setTrailer(blk, size)
	return blk
}

func (info *Info) binFeedRemainder() {
	if info.feedRemaining > 0 && info.feedPtr != nil {
		info.binBlock(info.feedPtr, info.feedRemaining)
	}
	info.feedPtr, info.feedRemaining, info.feedBase = nil, 0, nil
}

// refill maps (or adopts a prefetched) super-pool and installs it as
// the sequential-feed source.
func (info *Info) refill() bool {
	var base unsafe.Pointer
	if p := atomic.SwapPointer(&info.prefetch, nil); p != nil {
		base = p
	} else {
		base = osmem.Map(SuperPoolSize)
		if base == nil {
			heaplog.Warnw(heaplog.Fields{"pool": info.name, "bytes": SuperPoolSize}, "super-pool map failed")
			return false
		}
	}
	info.linkSuperPool(base)
	info.stats.SuperPools++

	body := unsafe.Pointer(uintptr(base) + uintptr(poolLinkSize))
	bodySize := SuperPoolSize - poolLinkSize
	info.feedBase, info.feedPtr, info.feedRemaining = base, body, bodySize
	return true
}

func (info *Info) linkSuperPool(base unsafe.Pointer) {
	link := (*poolLink)(base)
	link.next = unsafe.Pointer(&info.sentinel)
	link.prev = info.sentinel.prev
	(*poolLink)(info.sentinel.prev).next = base
	info.sentinel.prev = base
}

func (info *Info) unlinkSuperPool(base unsafe.Pointer) {
	link := (*poolLink)(base)
	prev, next := link.prev, link.next
	(*poolLink)(prev).next = next
	(*poolLink)(next).prev = prev
}

// Prefetch speculatively maps a super-pool outside the main lock, so
// the next refill avoids the syscall latency.
func (info *Info) Prefetch() {
	if atomic.LoadPointer(&info.prefetch) != nil {
		return
	}
	if !info.prefetchLock.TryLock() {
		return
	}
	defer info.prefetchLock.Unlock()
	if info.prefetch != nil {
		return
	}
	if base := osmem.Map(SuperPoolSize); base != nil {
		atomic.StorePointer(&info.prefetch, base)
	}
}

// Free returns a medium block to its namespace, coalescing with
// adjacent free neighbors.
func (info *Info) Free(payload unsafe.Pointer) {
	blockAddr := unsafe.Pointer(uintptr(payload) - uintptr(headerSize))
	if !info.lock.TryLock() {
		info.freeStack.Push(blockAddr)
		return
	}
	info.freeLocked(blockAddr)
	info.drainStackLocked()
	info.lock.Unlock()
}

func (info *Info) freeLocked(blockAddr unsafe.Pointer) {
	hdr := blockhdr.At(blockAddr)
	size := hdr.Size()
	info.recordFree(size)

	next := unsafe.Pointer(uintptr(blockAddr) + uintptr(size))
	if info.withinPool(blockAddr, next) {
		if nhdr := blockhdr.At(next); nhdr.Has(blockhdr.IsFree) {
			nsize := nhdr.Size()
			info.unlinkBin(binIndex(nsize), next)
			size += nsize
		}
	}

	if hdr.Has(blockhdr.PrevMediumFree) {
		prevSize := trailerAt(blockAddr)
		prevAddr := unsafe.Pointer(uintptr(blockAddr) - uintptr(prevSize))
		info.unlinkBin(binIndex(prevSize), prevAddr)
		blockAddr = prevAddr
		size += prevSize
	}

	if info.feedBase != nil {
		body := unsafe.Pointer(uintptr(info.feedBase) + uintptr(poolLinkSize))
		bodySize := SuperPoolSize - poolLinkSize
		if blockAddr == body && size == bodySize {
			info.feedPtr, info.feedRemaining = blockAddr, size
			return
		}
	}

	if size == SuperPoolSize-poolLinkSize {
		poolBase := unsafe.Pointer(uintptr(blockAddr) - uintptr(poolLinkSize))
		info.unlinkSuperPool(poolBase)
		info.stats.SuperPools--
		osmem.Unmap(poolBase, SuperPoolSize)
		return
	}

	info.binBlock(blockAddr, size)
}

func (info *Info) drainStackLocked() {
	for blk := info.freeStack.Drain(); blk != nil; {
		next := freestack.Next(blk)
		info.freeLocked(blk)
		blk = next
	}
}

func (info *Info) acquire() {
	if info.lock.TryLock() {
		return
	}
	info.Prefetch()
	sleeps := info.lock.Acquire(2500)
	if sleeps > 0 {
		info.stats.SleepCount += sleeps
	}
}

func (info *Info) release() {
	info.drainStackLocked()
	info.lock.Unlock()
}

func (info *Info) recordAlloc(size int64) {
	info.stats.AllocCount++
	info.stats.CurrentBytes += size
	info.stats.CumulativeBytes += size
	if info.stats.CurrentBytes > info.stats.PeakBytes {
		info.stats.PeakBytes = info.stats.CurrentBytes
	}
	info.sizeAvg.Add(size)
}

func (info *Info) recordFree(size int64) {
	info.stats.FreeCount++
	info.stats.CurrentBytes -= size
}

// Realloc implements the medium tier's grow/shrink-in-place and
// fallback policy for a block owned by this namespace.
func (info *Info) Realloc(payload unsafe.Pointer, newSize int64) unsafe.Pointer {
	blockAddr := unsafe.Pointer(uintptr(payload) - uintptr(headerSize))
	hdr := blockhdr.At(blockAddr)
	size := round256(newSize)
	cur := hdr.Size()

	if size <= cur && size*2 >= cur {
		return payload
	}

	info.acquire()
	defer info.release()

	if size < cur {
		rem := cur - size
		if rem >= MinMedium {
			*blockhdr.At(blockAddr) = blockhdr.PackSize(size, blockhdr.IsMedium)
			setTrailer(blockAddr, size)
			info.binBlock(unsafe.Pointer(uintptr(blockAddr)+uintptr(size)), rem)
			return payload
		}
		return payload
	}

	// Growth targets max(requested, current * 1.25) so a caller growing
	// a block in small increments doesn't walk this path, and the
	// eventual alloc+copy+free fallback below, on every single call.
	target := round256(cur + cur/4)
	if target < size {
		target = size
	}

	next := unsafe.Pointer(uintptr(blockAddr) + uintptr(cur))
	if info.withinPool(blockAddr, next) {
		nhdr := blockhdr.At(next)
		if nhdr.Has(blockhdr.IsFree) {
			nsize := nhdr.Size()
			combined := cur + nsize
			if combined >= size {
				info.unlinkBin(binIndex(nsize), next)
				grown := target
				if grown > combined {
					grown = combined
				}
				if combined >= grown+MinMedium {
					info.splitBlock(blockAddr, grown, combined)
				} else {
					info.clearPrevFree(blockAddr, combined)
				}
				return payload
			}
		}
	}
	return nil
}

// Snapshot returns a copy of this namespace's statistics.
func (info *Info) Snapshot() Stats {
	return info.stats
}

// TierStats converts this namespace's counters to the shared
// heapstats.TierStats shape used by the root snapshot.
func (info *Info) TierStats() heapstats.TierStats {
	s := info.stats
	return heapstats.TierStats{
		CurrentBytes:    s.CurrentBytes,
		CumulativeBytes: s.CumulativeBytes,
		PeakBytes:       s.PeakBytes,
		AllocCount:      s.AllocCount,
		FreeCount:       s.FreeCount,
	}
}

// BinUtilization reports, for every non-empty free-list bin, how many
// blocks it currently holds and their combined byte capacity — the
// medium half of the slab utilization report alongside
// tiny.ClassUtilization.
func (info *Info) BinUtilization() []heapstats.BinUtilization {
	info.lock.Acquire(2500)
	defer info.lock.Unlock()

	stats := make([]heapstats.BinUtilization, 0, NumEntries)
	for entry := 0; entry < NumEntries; entry++ {
		sentinel := &info.bins[entry]
		if sentinel.next == unsafe.Pointer(sentinel) {
			continue
		}
		stat := heapstats.BinUtilization{BlockSize: MinMedium + int64(entry)*BinGranularity}
		for l := sentinel.next; l != unsafe.Pointer(sentinel); l = (*binLink)(l).next {
			blockAddr := unsafe.Pointer(uintptr(l) - uintptr(headerSize))
			stat.FreeBlocks++
			stat.FreeBytes += blockhdr.At(blockAddr).Size()
		}
		stats = append(stats, stat)
	}
	return stats
}

// SizeDistribution reports the min/max/mean/stddev of every block
// size this namespace has served, under lock since AverageInt64
// carries no synchronization of its own.
func (info *Info) SizeDistribution() heapstats.SizeDistribution {
	info.lock.Acquire(2500)
	defer info.lock.Unlock()
	avg := info.sizeAvg
	return heapstats.SizeDistribution{
		Samples: avg.Samples(),
		Min:     avg.Min(),
		Max:     avg.Max(),
		Mean:    avg.Mean(),
		StdDev:  avg.SD(),
	}
}
