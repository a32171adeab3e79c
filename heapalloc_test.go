package heapalloc

import (
	"testing"
	"unsafe"

	"github.com/prataprc/heapalloc/heapconf"
)

func setup(t *testing.T) {
	t.Helper()
	Init(heapconf.Settings{})
}

func TestAllocFreeTiny(t *testing.T) {
	setup(t)
	p := Alloc(40)
	if p == nil {
		t.Fatalf("expected non-nil tiny allocation")
	}
	if n := Free(p); n == 0 {
		t.Fatalf("expected non-zero freed size")
	}
}

func TestAllocFreeMedium(t *testing.T) {
	setup(t)
	p := Alloc(8 * 1024)
	if p == nil {
		t.Fatalf("expected non-nil medium allocation")
	}
	if n := Free(p); n == 0 {
		t.Fatalf("expected non-zero freed size")
	}
}

func TestAllocFreeLarge(t *testing.T) {
	setup(t)
	p := Alloc(1024 * 1024)
	if p == nil {
		t.Fatalf("expected non-nil large allocation")
	}
	if n := Free(p); n == 0 {
		t.Fatalf("expected non-zero freed size")
	}
}

func TestAllocZeroedClearsMemory(t *testing.T) {
	setup(t)
	p := Alloc(64)
	b := unsafe.Slice((*byte)(p), 64)
	for i := range b {
		b[i] = 0xff
	}
	Free(p)

	p = AllocZeroed(64)
	b = unsafe.Slice((*byte)(p), 64)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("expected zeroed byte at %v, got %v", i, v)
		}
	}
	Free(p)
}

func TestReallocPreservesContent(t *testing.T) {
	setup(t)
	var p unsafe.Pointer = Alloc(32)
	b := unsafe.Slice((*byte)(p), 32)
	for i := range b {
		b[i] = byte(i)
	}

	grown := Realloc(&p, 4096)
	if grown == nil {
		t.Fatalf("expected realloc to succeed")
	}
	b2 := unsafe.Slice((*byte)(p), 32)
	for i := range b2 {
		if b2[i] != byte(i) {
			t.Fatalf("expected content preserved at %v, got %v", i, b2[i])
		}
	}
	Free(p)
}

func TestSizeOfMatchesClass(t *testing.T) {
	setup(t)
	p := Alloc(10)
	if SizeOf(p) < 10 {
		t.Fatalf("expected SizeOf to report at least requested size")
	}
	Free(p)
}

func TestFreeNilIsNoop(t *testing.T) {
	setup(t)
	if n := Free(nil); n != 0 {
		t.Fatalf("expected 0 for freeing nil, got %v", n)
	}
}

func TestCurrentHeapStatusTracksAllocations(t *testing.T) {
	setup(t)
	before := CurrentHeapStatus()
	p := Alloc(4096)
	after := CurrentHeapStatus()
	if after.Medium.AllocCount <= before.Medium.AllocCount {
		t.Fatalf("expected medium alloc count to increase")
	}
	Free(p)
}
