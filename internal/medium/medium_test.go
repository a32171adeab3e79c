package medium

import (
	"testing"
	"unsafe"

	"github.com/prataprc/heapalloc/internal/blockhdr"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	info := New("test")
	p := info.Alloc(4096)
	if p == nil {
		t.Fatalf("expected non-nil allocation")
	}
	snap := info.Snapshot()
	if snap.AllocCount != 1 {
		t.Fatalf("expected 1 alloc, got %v", snap.AllocCount)
	}
	info.Free(p)
	snap = info.Snapshot()
	if snap.FreeCount != 1 {
		t.Fatalf("expected 1 free, got %v", snap.FreeCount)
	}
}

func TestAllocMultipleFromSameSuperPool(t *testing.T) {
	info := New("test")
	var ptrs []interface{}
	for i := 0; i < 8; i++ {
		p := info.Alloc(4096)
		if p == nil {
			t.Fatalf("expected non-nil allocation at %v", i)
		}
		ptrs = append(ptrs, p)
	}
	snap := info.Snapshot()
	if snap.SuperPools != 1 {
		t.Fatalf("expected a single super-pool to serve 8 small allocations, got %v", snap.SuperPools)
	}
}

func TestRoundSizeObeysMinimum(t *testing.T) {
	if got := round256(1); got != MinMedium {
		t.Fatalf("expected smallest request to round up to MinMedium, got %v", got)
	}
}

func TestBinIndexClamped(t *testing.T) {
	if idx := binIndex(MinMedium); idx != 0 {
		t.Fatalf("expected bin 0 at MinMedium, got %v", idx)
	}
	if idx := binIndex(MinMedium + 2000*BinGranularity); idx != NumEntries-1 {
		t.Fatalf("expected clamp to last bin, got %v", idx)
	}
}

func TestWithinPoolRejectsSuperPoolEdge(t *testing.T) {
	info := New("test")
	info.Alloc(4096) // forces the first super-pool to be mapped and linked

	base := info.sentinel.next
	edge := unsafe.Pointer(uintptr(base) + uintptr(SuperPoolSize))
	if info.withinPool(base, edge) {
		t.Fatalf("expected the super-pool's mapped edge to be rejected")
	}

	inside := unsafe.Pointer(uintptr(base) + uintptr(SuperPoolSize) - 1)
	if !info.withinPool(base, inside) {
		t.Fatalf("expected an address inside the super-pool to be accepted")
	}
}

func TestSuperPoolRefillAndFreeTrailingBlock(t *testing.T) {
	info := New("test")
	const size = int64(4096)

	var ptrs []unsafe.Pointer
	for info.Snapshot().SuperPools < 2 {
		p := info.Alloc(size)
		if p == nil {
			t.Fatalf("unexpected alloc failure driving a super-pool refill")
		}
		ptrs = append(ptrs, p)
	}

	// ptrs[len-2] is the last block carved from the first super-pool
	// before its feed remainder was binned at the mapped edge;
	// ptrs[len-1] is the first block carved from the second. Freeing
	// both, then everything else, exercises the read/write paths that
	// touch a block's trailing neighbor right at a super-pool boundary.
	info.Free(ptrs[len(ptrs)-2])
	info.Free(ptrs[len(ptrs)-1])
	for _, p := range ptrs[:len(ptrs)-2] {
		info.Free(p)
	}

	if snap := info.Snapshot(); snap.FreeCount != int64(len(ptrs)) {
		t.Fatalf("expected all %v allocations freed, got %v", len(ptrs), snap.FreeCount)
	}
}

func TestFreeCoalescesThreeAdjacentBlocks(t *testing.T) {
	info := New("test")
	const n = int64(4096)

	a := info.Alloc(n)
	b := info.Alloc(n)
	c := info.Alloc(n)
	if a == nil || b == nil || c == nil {
		t.Fatalf("expected three non-nil adjacent allocations")
	}
	sizeA := blockhdr.At(a).Size()
	sizeB := blockhdr.At(b).Size()
	sizeC := blockhdr.At(c).Size()

	info.Free(a)
	info.Free(c)
	info.Free(b)

	merged := blockhdr.At(a)
	if !merged.Has(blockhdr.IsFree) {
		t.Fatalf("expected the coalesced run to be free")
	}
	if got, want := merged.Size(), sizeA+sizeB+sizeC; got != want {
		t.Fatalf("expected coalesced size %v, got %v", want, got)
	}
}

func TestBinUtilizationReportsFreeBlocks(t *testing.T) {
	info := New("test")
	a := info.Alloc(4096)
	b := info.Alloc(4096)
	if a == nil || b == nil {
		t.Fatalf("expected two non-nil allocations")
	}
	info.Free(a)

	bins := info.BinUtilization()
	var total int64
	for _, bin := range bins {
		total += bin.FreeBlocks
	}
	if total != 1 {
		t.Fatalf("expected exactly one free block across all bins, got %v", total)
	}
}

func TestSizeDistributionTracksServedSizes(t *testing.T) {
	info := New("test")
	info.Alloc(4096)
	info.Alloc(8192)

	dist := info.SizeDistribution()
	if dist.Samples != 2 {
		t.Fatalf("expected 2 samples, got %v", dist.Samples)
	}
	if dist.Min == 0 || dist.Max < dist.Min {
		t.Fatalf("expected sane min/max, got min=%v max=%v", dist.Min, dist.Max)
	}
}
