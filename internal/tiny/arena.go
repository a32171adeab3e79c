// Package tiny implements the tiny/small-tier allocator: size-classed
// locked pools fed from the medium tier, a lock-less free stack per
// class for contended frees, and round-robin or thread-hashed arena
// selection that spreads tiny-block contention across CPUs.
//
// Grounded on a classic arena/pool allocator's pool-selection and
// utilization bookkeeping and its intrusive partial-pool free list,
// adapted from fixed block-size-array pools over cgo memory to
// size-classed pools fed from internal/medium.
package tiny

import (
	"sync/atomic"
	"unsafe"

	"github.com/prataprc/heapalloc/internal/blockhdr"
	"github.com/prataprc/heapalloc/internal/heapstats"
	"github.com/prataprc/heapalloc/internal/sizeclass"
)

// DefaultArenas is one Small array plus 7 extra Tiny arenas.
const DefaultArenas = 8

// BoosterArenas is the "booster" configuration's arena count.
const BoosterArenas = 127

// defaultOptimalPoolSize is the starting chunk size a class requests
// from the medium tier; classRecord.growPoolSize adapts it upward
// under sustained pressure, and classRecord.emptyPools retains
// drained chunks instead of returning each one immediately.
const defaultOptimalPoolSize = int64(16 * 1024)

// Arena is one size-class array: either the main "Small" array
// (serving every class) or a "Tiny" array (serving only the tiny
// classes).
type Arena struct {
	classes []*classRecord
}

func newArena(table *sizeclass.Table, numClasses int, backend Backend) *Arena {
	a := &Arena{classes: make([]*classRecord, numClasses)}
	for i := 0; i < numClasses; i++ {
		a.classes[i] = newClassRecord(table.Classes[i], defaultOptimalPoolSize, backend)
	}
	return a
}

// Pool is the full tiny/small allocator: the main Small array plus
// however many Tiny arenas the configuration calls for.
type Pool struct {
	table          *sizeclass.Table
	numTinyClasses int
	main           *Arena
	tiny           []*Arena
	cursor         uint32
	perThread      bool
}

// Config selects the tiny-tier shape via the `boost`/`booster`/
// `per-thread-arenas` runtime toggles.
type Config struct {
	Boost     bool // raises the tiny ceiling from 128B to 256B
	Booster   bool // 127 tiny arenas instead of 7
	PerThread bool // thread-hash arena selection instead of round-robin
}

// New builds the tiny/small allocator over the given size-class table,
// backed by medium for pool refills.
func New(table *sizeclass.Table, cfg Config, backend Backend) *Pool {
	numTiny := 8
	if cfg.Boost {
		numTiny = sizeclass.LinearClasses
	}

	numArenas := DefaultArenas
	if cfg.Booster {
		numArenas = BoosterArenas
	}

	p := &Pool{
		table:          table,
		numTinyClasses: numTiny,
		main:           newArena(table, len(table.Classes), backend),
		perThread:      cfg.PerThread,
	}
	p.tiny = make([]*Arena, numArenas-1)
	for i := range p.tiny {
		p.tiny[i] = newArena(table, numTiny, backend)
	}
	return p
}

// selectArena implements the arena-selection rule for a class index
// that is within the tiny range.
func (p *Pool) selectArena(threadHash uint32) *Arena {
	if len(p.tiny) == 0 {
		return p.main
	}
	var idx uint32
	if p.perThread {
		idx = knuthHash32(threadHash) % uint32(len(p.tiny)+1)
	} else {
		idx = atomic.AddUint32(&p.cursor, 1) % uint32(len(p.tiny)+1)
	}
	if idx == 0 {
		return p.main
	}
	return p.tiny[idx-1]
}

func knuthHash32(x uint32) uint32 {
	return x * 2654435761
}

// Alloc hands out a block able to hold n bytes (header included),
// selecting both class and arena.
func (p *Pool) Alloc(n int64, threadHash uint32) unsafe.Pointer {
	c := p.table.ClassFor(n)
	if c < 0 {
		return nil
	}
	arena := p.main
	if c < p.numTinyClasses {
		arena = p.selectArena(threadHash)
	}
	return arena.classes[c].Alloc()
}

// Free returns a tiny/small block, reading its owning pool straight
// from the header. Returns the class's block size, the allocation's
// nominal size, or 0 if payload is nil.
func (p *Pool) Free(payload unsafe.Pointer) int64 {
	if payload == nil {
		return 0
	}
	hdr := blockhdr.At(payload)
	owner := (*pool)(hdr.Pool())
	size := owner.blockSize
	owner.owner.Free(payload, owner)
	return size
}

// SizeOf returns the nominal block size of a live tiny/small
// allocation.
func (p *Pool) SizeOf(payload unsafe.Pointer) int64 {
	hdr := blockhdr.At(payload)
	owner := (*pool)(hdr.Pool())
	return owner.blockSize
}

// ClassFor exposes the size-class lookup so the tier dispatcher and
// Free path can share it.
func (p *Pool) ClassFor(n int64) int {
	return p.table.ClassFor(n)
}

// ClassSize returns the block size (including header) for a class
// index.
func (p *Pool) ClassSize(idx int) int64 {
	return p.table.Classes[idx]
}

// ClassUtilization reports per-class allocated-vs-capacity bytes
// across every arena that serves it.
func (p *Pool) ClassUtilization() []ClassStat {
	stats := make([]ClassStat, len(p.table.Classes))
	for i, c := range p.main.classes {
		cap, alloc := c.utilization()
		stats[i] = ClassStat{BlockSize: p.table.Classes[i], Capacity: cap, Allocated: alloc}
	}
	for _, arena := range p.tiny {
		for i, c := range arena.classes {
			cap, alloc := c.utilization()
			stats[i].Capacity += cap
			stats[i].Allocated += alloc
		}
	}
	return stats
}

// ClassStat is one row of ClassUtilization's report.
type ClassStat struct {
	BlockSize int64
	Capacity  int64
	Allocated int64
}

// Contention reports per-class sleep counts across every arena.
func (p *Pool) Contention() []ClassContention {
	out := make([]ClassContention, len(p.table.Classes))
	for i, c := range p.main.classes {
		out[i] = ClassContention{BlockSize: p.table.Classes[i], Sleeps: c.sleeps}
	}
	for _, arena := range p.tiny {
		for i, c := range arena.classes {
			out[i].Sleeps += c.sleeps
		}
	}
	return out
}

// ClassContention is one row of Contention's report.
type ClassContention struct {
	BlockSize int64
	Sleeps    int64
}

// Status reports cumulative vs. currently-outstanding blocks per size
// class, across every arena.
func (p *Pool) Status(max int) []heapstats.SizeClassStatus {
	out := make([]heapstats.SizeClassStatus, len(p.table.Classes))
	accumulate := func(c *classRecord, i int) {
		out[i].BlockSize = p.table.Classes[i]
		out[i].Total += c.allocs
		out[i].Current += c.allocs - c.frees
	}
	for i, c := range p.main.classes {
		accumulate(c, i)
	}
	for _, arena := range p.tiny {
		for i, c := range arena.classes {
			accumulate(c, i)
		}
	}
	if max > 0 && max < len(out) {
		out = out[:max]
	}
	return out
}

// ContentionStatus reports per-size-class sleep counts in the
// heapstats row shape.
func (p *Pool) ContentionStatus(max int) []heapstats.SizeClassContention {
	rows := p.Contention()
	out := make([]heapstats.SizeClassContention, len(rows))
	for i, r := range rows {
		out[i] = heapstats.SizeClassContention{BlockSize: r.BlockSize, SleepCount: r.Sleeps}
	}
	if max > 0 && max < len(out) {
		out = out[:max]
	}
	return out
}

// TierStats aggregates every class's alloc/free counters into one
// tier-level total for the heap status snapshot.
func (p *Pool) TierStats() heapstats.TierStats {
	var t heapstats.TierStats
	accumulate := func(c *classRecord) {
		t.AllocCount += c.allocs
		t.FreeCount += c.frees
	}
	for _, c := range p.main.classes {
		accumulate(c)
	}
	for _, arena := range p.tiny {
		for _, c := range arena.classes {
			accumulate(c)
		}
	}
	cap, alloc := int64(0), int64(0)
	for _, stat := range p.ClassUtilization() {
		cap += stat.Capacity
		alloc += stat.Allocated
	}
	t.CurrentBytes = alloc
	t.PeakBytes = cap
	return t
}
