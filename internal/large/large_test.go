package large

import (
	"testing"

	"github.com/prataprc/heapalloc/internal/blockhdr"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(1 << 20)
	if ptr == nil {
		t.Fatalf("expected non-nil allocation")
	}
	size := p.Free(ptr)
	if size == 0 {
		t.Fatalf("expected non-zero freed size")
	}
}

func TestDoubleFreeIsNoop(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(1 << 20)
	p.Free(ptr)
	if size := p.Free(ptr); size != 0 {
		t.Fatalf("expected double free to report 0, got %v", size)
	}
}

func TestRoundSizeGranularity(t *testing.T) {
	small := roundSize(1024, 4*1024*1024)
	if small%Granularity != 0 {
		t.Fatalf("expected 64KB granularity below threshold, got %v", small)
	}
	big := roundSize(8*1024*1024, 4*1024*1024)
	if big%HugepageGranularity != 0 {
		t.Fatalf("expected 2MB granularity at/above threshold, got %v", big)
	}
}

func TestSnapshotTracksCurrentBytes(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(4096)
	if snap := p.Snapshot(); snap.CurrentBytes == 0 {
		t.Fatalf("expected non-zero current bytes after alloc")
	}
	p.Free(ptr)
	if snap := p.Snapshot(); snap.CurrentBytes != 0 {
		t.Fatalf("expected zero current bytes after free, got %v", snap.CurrentBytes)
	}
}

func TestSizeDistributionTracksServedSizes(t *testing.T) {
	p := New(Config{})
	p.Alloc(1 << 20)
	p.Alloc(2 << 20)

	dist := p.SizeDistribution()
	if dist.Samples != 2 {
		t.Fatalf("expected 2 samples, got %v", dist.Samples)
	}
	if dist.Mean == 0 {
		t.Fatalf("expected non-zero mean")
	}
}

func TestReallocWithinHalfBucketReturnsSamePointer(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(1 << 20)
	cur := blockhdr.At(ptr).Size()

	grown, ok := p.Realloc(ptr, cur-linkBytes-headerSize)
	if !ok || grown != ptr {
		t.Fatalf("expected same pointer back for a size within the current bucket")
	}
}

func TestReallocShrinkBelowHalfFallsBack(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(4 << 20)
	cur := blockhdr.At(ptr).Size()

	_, ok := p.Realloc(ptr, cur/4)
	if ok {
		t.Fatalf("expected shrink below half to report ok=false, leaving the fallback to the caller")
	}
}

func TestReallocGrowInPlaceRemaps(t *testing.T) {
	p := New(Config{})
	ptr := p.Alloc(1 << 20)
	cur := blockhdr.At(ptr).Size()

	grown, ok := p.Realloc(ptr, cur+(1<<20))
	if !ok {
		t.Fatalf("expected the grow-in-place path to succeed via mremap")
	}
	newSize := blockhdr.At(grown).Size()
	if newSize < cur+(1<<20) {
		t.Fatalf("expected the grown block to cover the requested size, got %v", newSize)
	}
	if newSize < cur+cur/4 {
		t.Fatalf("expected the grow to overshoot by roughly 25%% of the prior size, got %v from %v", newSize, cur)
	}
	p.Free(grown)
}

func TestAmortizedGrowSizeUsesSmallerOvershootAboveThreshold(t *testing.T) {
	p := New(Config{})

	below := p.amortizedGrowSize(64<<20, 70<<20)
	if below < (64<<20)+(64<<20)/4 {
		t.Fatalf("expected roughly 25%% overshoot below the hugepage-amortize threshold, got %v", below)
	}

	above := p.amortizedGrowSize(256<<20, 260<<20)
	want := roundToGranularity(256<<20+(256<<20)/8, p.hugepageThreshold)
	if above != want {
		t.Fatalf("expected 12.5%% overshoot above the threshold, got %v want %v", above, want)
	}
}
